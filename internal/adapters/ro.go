package adapters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oplego/lexharvest/internal/model"
)

// ROAdapter imports acts from the Romanian legislative portal
type ROAdapter struct {
	*BaseAdapter
}

// NewROAdapter creates a new legislatie.just.ro adapter
func NewROAdapter(deps Deps) *ROAdapter {
	return &ROAdapter{BaseAdapter: newBaseAdapter(roProfile(), deps)}
}

func roProfile() profile {
	return profile{
		jurisdiction: model.JurisdictionRO,
		baseURL:      "https://legislatie.just.ro",
		languages:    []string{"RO"},
		documentURL: func(base, sourceID, _ string) string {
			return fmt.Sprintf("%s/Public/DetaliiDocument/%s", base, sourceID)
		},
		bodySelectors: []string{
			"#textdocumentleg",
			".textdocumentleg",
			"#div_Formula",
			"#continut",
		},
		titleSelectors: []string{".S_DEN", "span.S_HDR", "h1"},
		stripSelectors: []string{".S_NTA", ".S_NTA_PAR", "#printare", ".breadcrumb"},
		identify:       identifyRO,
		repealMarkers:  []string{"act abrogat", "abrogat prin", "actul a fost abrogat"},
		inForceLabels:  []string{"Data intrării în vigoare", "Data intrarii in vigoare"},
		amendedLabels:  []string{"Forma consolidată valabilă la", "Forma consolidata valabila la", "Ultima modificare"},
		priority: []PriorityAct{
			{SourceID: "73772", Title: "Legea nr. 319/2006 a securității și sănătății în muncă", ShortName: "Legea SSM"},
			{SourceID: "76147", Title: "Hotărârea nr. 1425/2006 pentru aprobarea Normelor metodologice de aplicare a prevederilor Legii securității și sănătății în muncă nr. 319/2006", ShortName: "Norme metodologice SSM"},
			{SourceID: "77363", Title: "Hotărârea nr. 1146/2006 privind cerințele minime de securitate și sănătate pentru utilizarea în muncă de către lucrători a echipamentelor de muncă", ShortName: "Echipamente de muncă"},
			{SourceID: "73866", Title: "Hotărârea nr. 1048/2006 privind cerințele minime de securitate și sănătate pentru utilizarea de către lucrători a echipamentelor individuale de protecție la locul de muncă", ShortName: "EIP"},
			{SourceID: "74778", Title: "Hotărârea nr. 1091/2006 privind cerințele minime de securitate și sănătate pentru locul de muncă", ShortName: "Locul de muncă"},
			{SourceID: "74214", Title: "Hotărârea nr. 971/2006 privind cerințele minime pentru semnalizarea de securitate și/sau de sănătate la locul de muncă", ShortName: "Semnalizare"},
			{SourceID: "74060", Title: "Hotărârea nr. 355/2007 privind supravegherea sănătății lucrătorilor", ShortName: "Supravegherea sănătății"},
			{SourceID: "128647", Title: "Legea nr. 53/2003 Codul muncii (republicată)", ShortName: "Codul muncii"},
			{SourceID: "75022", Title: "Legea nr. 307/2006 privind apărarea împotriva incendiilor", ShortName: "Legea PSI"},
			{SourceID: "51880", Title: "Legea nr. 346/2002 privind asigurarea pentru accidente de muncă și boli profesionale", ShortName: "Asigurare accidente de muncă"},
		},
	}
}

var (
	roTypes = []struct {
		prefix  string
		actType string
	}{
		{"ordonanța de urgență", "ordonanta_urgenta"},
		{"ordonanță de urgență", "ordonanta_urgenta"},
		{"ordonanța", "ordonanta"},
		{"ordonanță", "ordonanta"},
		{"hotărârea", "hotarare"},
		{"hotărâre", "hotarare"},
		{"hotararea", "hotarare"},
		{"legea", "lege"},
		{"lege", "lege"},
		{"ordinul", "ordin"},
		{"ordin", "ordin"},
		{"decretul", "decret"},
		{"decret", "decret"},
	}
	roNumber = regexp.MustCompile(`(?i)nr\.\s*(\d+)(?:\s*/\s*(\d{4}))?`)
)

// identifyRO reads "Legea nr. 319/2006 ..." or "HOTĂRÂRE nr. 1425 din 11 octombrie 2006"
func identifyRO(_, title string) identity {
	lower := strings.ToLower(title)

	var id identity
	for _, t := range roTypes {
		if strings.HasPrefix(lower, t.prefix) {
			id.ActType = t.actType
			break
		}
	}
	if strings.Contains(lower, "codul") {
		id.ActType = "cod"
	}

	if m := roNumber.FindStringSubmatch(title); m != nil {
		id.Number = m[1]
		if m[2] != "" {
			id.Year, _ = strconv.Atoi(m[2])
			id.Number = m[1] + "/" + m[2]
		}
	}
	if id.Year == 0 {
		if d := parseDate(title); d != nil {
			id.Year = d.Year()
		} else {
			id.Year = firstYear(title)
		}
	}

	return id
}
