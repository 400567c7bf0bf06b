package adapters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// PLAdapter imports acts from the Sejm ELI service. Source ids are
// "<publisher>/<year>/<position>", e.g. "DU/1974/141".
type PLAdapter struct {
	*BaseAdapter
}

// NewPLAdapter creates a new Polish ELI adapter
func NewPLAdapter(deps Deps) *PLAdapter {
	return &PLAdapter{BaseAdapter: newBaseAdapter(plProfile(), deps)}
}

func plProfile() profile {
	return profile{
		jurisdiction: model.JurisdictionPL,
		baseURL:      "https://api.sejm.gov.pl",
		languages:    []string{"PL"},
		documentURL: func(base, sourceID, _ string) string {
			return fmt.Sprintf("%s/eli/acts/%s/text.html", base, strings.Trim(sourceID, "/"))
		},
		bodySelectors: []string{
			"div.akt",
			"#akt",
			"main",
		},
		titleSelectors: []string{"h1", "div.tytul", ".title"},
		identify:       identifyPL,
		repealMarkers:  []string{"akt uchylony", "uchylony w całości"},
		inForceLabels:  []string{"Data wejścia w życie:", "wchodzi w życie z dniem"},
		priority: []PriorityAct{
			{SourceID: "DU/1974/141", Title: "Ustawa z dnia 26 czerwca 1974 r. Kodeks pracy", ShortName: "Kodeks pracy"},
			{SourceID: "DU/1997/844", Title: "Rozporządzenie Ministra Pracy i Polityki Socjalnej z dnia 26 września 1997 r. w sprawie ogólnych przepisów bezpieczeństwa i higieny pracy", ShortName: "Ogólne przepisy BHP"},
			{SourceID: "DU/2004/1860", Title: "Rozporządzenie Ministra Gospodarki i Pracy z dnia 27 lipca 2004 r. w sprawie szkolenia w dziedzinie bezpieczeństwa i higieny pracy", ShortName: "Szkolenia BHP"},
			{SourceID: "DU/1996/332", Title: "Rozporządzenie Ministra Zdrowia i Opieki Społecznej z dnia 30 maja 1996 r. w sprawie przeprowadzania badań lekarskich pracowników", ShortName: "Badania lekarskie"},
			{SourceID: "DU/2003/401", Title: "Rozporządzenie Ministra Infrastruktury z dnia 6 lutego 2003 r. w sprawie bezpieczeństwa i higieny pracy podczas wykonywania robót budowlanych", ShortName: "BHP na budowie"},
		},
	}
}

// identifyPL reads year and position from the ELI id and the type from the
// title
func identifyPL(sourceID, title string) identity {
	var id identity

	parts := strings.Split(strings.Trim(sourceID, "/"), "/")
	if len(parts) == 3 {
		id.Year, _ = strconv.Atoi(parts[1])
		id.Number = parts[2]
	}

	lower := strings.ToLower(title)
	switch {
	case strings.HasPrefix(lower, "ustawa"):
		id.ActType = "ustawa"
	case strings.HasPrefix(lower, "rozporządzenie"):
		id.ActType = "rozporzadzenie"
	case strings.HasPrefix(lower, "obwieszczenie"):
		id.ActType = "obwieszczenie"
	}

	if id.Year == 0 {
		id.Year = firstYear(title)
	}
	return id
}
