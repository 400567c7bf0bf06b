package adapters

import (
	"fmt"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// DEAdapter imports federal acts from gesetze-im-internet.de. Source ids are
// "<slug>/<BJNR document>", e.g. "arbschg/BJNR124610996".
type DEAdapter struct {
	*BaseAdapter
}

// NewDEAdapter creates a new gesetze-im-internet.de adapter
func NewDEAdapter(deps Deps) *DEAdapter {
	return &DEAdapter{BaseAdapter: newBaseAdapter(deProfile(), deps)}
}

func deProfile() profile {
	return profile{
		jurisdiction: model.JurisdictionDE,
		baseURL:      "https://www.gesetze-im-internet.de",
		languages:    []string{"DE"},
		documentURL: func(base, sourceID, _ string) string {
			return fmt.Sprintf("%s/%s.html", base, strings.TrimSuffix(sourceID, ".html"))
		},
		bodySelectors: []string{
			"#paddingLR12",
			"div.jnhtml",
			"#container",
		},
		titleSelectors: []string{"h1", ".jnlangue"},
		stripSelectors: []string{"#blaettern", ".jnfussnote", "#level2"},
		identify:       identifyDE,
		repealMarkers:  []string{"aufgehoben durch", "(weggefallen)"},
		adoptedLabels:  []string{"Ausfertigungsdatum:"},
		amendedLabels:  []string{"Zuletzt geändert durch", "Neugefasst durch"},
		priority: []PriorityAct{
			{SourceID: "arbschg/BJNR124610996", Title: "Gesetz über die Durchführung von Maßnahmen des Arbeitsschutzes zur Verbesserung der Sicherheit und des Gesundheitsschutzes der Beschäftigten bei der Arbeit", ShortName: "ArbSchG"},
			{SourceID: "asig/BJNR018850973", Title: "Gesetz über Betriebsärzte, Sicherheitsingenieure und andere Fachkräfte für Arbeitssicherheit", ShortName: "ASiG"},
			{SourceID: "arbst_ttv_2004/BJNR217910004", Title: "Verordnung über Arbeitsstätten", ShortName: "ArbStättV"},
			{SourceID: "betrsichv_2015/BJNR004910015", Title: "Verordnung über Sicherheit und Gesundheitsschutz bei der Verwendung von Arbeitsmitteln", ShortName: "BetrSichV"},
			{SourceID: "gefstoffv_2010/BJNR164410010", Title: "Verordnung zum Schutz vor Gefahrstoffen", ShortName: "GefStoffV"},
			{SourceID: "arbmedvv/BJNR276810008", Title: "Verordnung zur arbeitsmedizinischen Vorsorge", ShortName: "ArbMedVV"},
			{SourceID: "arbzg/BJNR117100994", Title: "Arbeitszeitgesetz", ShortName: "ArbZG"},
			{SourceID: "muschg_2018/BJNR122810017", Title: "Gesetz zum Schutz von Müttern bei der Arbeit, in der Ausbildung und im Studium", ShortName: "MuSchG"},
			{SourceID: "jarbschg/BJNR009650976", Title: "Gesetz zum Schutz der arbeitenden Jugend", ShortName: "JArbSchG"},
		},
	}
}

// identifyDE derives the act type from the title and the number from the
// slug, e.g. "arbschg/BJNR124610996" -> ARBSCHG
func identifyDE(sourceID, title string) identity {
	id := identity{ActType: "gesetz"}
	if strings.Contains(strings.ToLower(title), "verordnung") {
		id.ActType = "verordnung"
	}

	slug, _, _ := strings.Cut(sourceID, "/")
	id.Number = strings.ToUpper(slug)

	if d := parseDate(title); d != nil {
		id.Year = d.Year()
	}
	return id
}
