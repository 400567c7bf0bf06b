package adapters

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// BGAdapter imports acts from lex.bg
type BGAdapter struct {
	*BaseAdapter
}

// NewBGAdapter creates a new lex.bg adapter
func NewBGAdapter(deps Deps) *BGAdapter {
	return &BGAdapter{BaseAdapter: newBaseAdapter(bgProfile(), deps)}
}

func bgProfile() profile {
	return profile{
		jurisdiction: model.JurisdictionBG,
		baseURL:      "https://lex.bg",
		languages:    []string{"BG"},
		documentURL: func(base, sourceID, _ string) string {
			return fmt.Sprintf("%s/laws/ldoc/%s", base, sourceID)
		},
		bodySelectors: []string{
			"#DocumentContent",
			"div.boxi",
			"div.document",
			"#content",
		},
		titleSelectors: []string{".TitleDocument", "h1"},
		stripSelectors: []string{".ad", ".banner", ".social"},
		identify:       identifyBG,
		repealMarkers:  []string{"отменен", "отм. дв"},
		adoptedLabels:  []string{"Обн."},
		priority: []PriorityAct{
			{SourceID: "2134677504", Title: "Закон за здравословни и безопасни условия на труд", ShortName: "ЗЗБУТ"},
			{SourceID: "1594373121", Title: "Кодекс на труда", ShortName: "КТ"},
			{SourceID: "2135466296", Title: "Наредба № 7 за минималните изисквания за здравословни и безопасни условия на труд на работните места и при използване на работното оборудване", ShortName: "Наредба № 7"},
			{SourceID: "2134409729", Title: "Наредба № 3 за минималните изисквания за безопасност и опазване на здравето на работещите при използване на лични предпазни средства на работното място", ShortName: "Наредба № 3"},
			{SourceID: "2135557573", Title: "Наредба № РД-07-2 за условията и реда за провеждането на периодично обучение и инструктаж на работниците и служителите по правилата за осигуряване на здравословни и безопасни условия на труд", ShortName: "Наредба № РД-07-2"},
			{SourceID: "2135183648", Title: "Наредба № 2 за минималните изисквания за здравословни и безопасни условия на труд при извършване на строителни и монтажни работи", ShortName: "Наредба № 2"},
		},
	}
}

var (
	bgTypes = map[string]string{
		"закон":     "zakon",
		"кодекс":    "kodeks",
		"наредба":   "naredba",
		"правилник": "pravilnik",
		"указ":      "ukaz",
	}
	bgNumber = regexp.MustCompile(`№\s*([\p{L}\d-]+)`)
)

// identifyBG reads "Наредба № 7 за ..." style titles
func identifyBG(_, title string) identity {
	var id identity

	fields := strings.Fields(strings.ToLower(title))
	if len(fields) > 0 {
		id.ActType = bgTypes[fields[0]]
	}
	if m := bgNumber.FindStringSubmatch(title); m != nil {
		id.Number = m[1]
	}
	id.Year = firstYear(title)

	return id
}
