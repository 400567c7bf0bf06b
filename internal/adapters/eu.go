package adapters

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/oplego/lexharvest/internal/model"
)

// EUAdapter imports acts from EUR-Lex, keyed by CELEX number
type EUAdapter struct {
	*BaseAdapter
}

// NewEUAdapter creates a new EUR-Lex adapter
func NewEUAdapter(deps Deps) *EUAdapter {
	return &EUAdapter{BaseAdapter: newBaseAdapter(euProfile(), deps)}
}

func euProfile() profile {
	return profile{
		jurisdiction: model.JurisdictionEU,
		baseURL:      "https://eur-lex.europa.eu",
		languages:    []string{"RO", "EN"},
		documentURL: func(base, sourceID, lang string) string {
			return fmt.Sprintf("%s/legal-content/%s/TXT/HTML/?uri=CELEX:%s", base, lang, sourceID)
		},
		bodySelectors: []string{
			"#document1",
			"#TexteOnly",
			"div.eli-container",
			"#textTabContent",
			"#text",
		},
		titleSelectors: []string{
			".eli-main-title",
			"p.title-doc-first",
			"p.doc-ti",
			"#title",
		},
		stripSelectors: []string{"#banner", ".EurlexTop", ".modal", "#PPLinks", ".linkToTop"},
		identify:       identifyCELEX,
		repealMarkers:  []string{"no longer in force", "nu mai este în vigoare", "nu mai este in vigoare"},
		adoptedLabels:  []string{"Date of document:", "Data documentului:"},
		inForceLabels:  []string{"Date of entry into force:", "Data intrării în vigoare:"},
		amendedLabels:  []string{"Last amended", "Ultima modificare"},
		priority: []PriorityAct{
			{SourceID: "31989L0391", Title: "Directiva 89/391/CEE privind punerea în aplicare de măsuri pentru promovarea îmbunătățirii securității și sănătății lucrătorilor la locul de muncă", ShortName: "Directiva-cadru SSM"},
			{SourceID: "31989L0654", Title: "Directiva 89/654/CEE privind cerințele minime de securitate și sănătate la locul de muncă", ShortName: "Locul de muncă"},
			{SourceID: "32009L0104", Title: "Directiva 2009/104/CE privind cerințele minime de securitate și sănătate pentru folosirea de către lucrători a echipamentelor de muncă", ShortName: "Echipamente de muncă"},
			{SourceID: "31989L0656", Title: "Directiva 89/656/CEE privind cerințele minime de securitate și sănătate pentru utilizarea de către lucrători a echipamentelor individuale de protecție", ShortName: "Utilizare EIP"},
			{SourceID: "32016R0425", Title: "Regulamentul (UE) 2016/425 privind echipamentele individuale de protecție", ShortName: "Regulamentul EIP"},
			{SourceID: "31990L0269", Title: "Directiva 90/269/CEE privind manipularea manuală a maselor", ShortName: "Manipularea maselor"},
			{SourceID: "31990L0270", Title: "Directiva 90/270/CEE privind lucrul la echipamente cu ecran de vizualizare", ShortName: "Ecrane de vizualizare"},
			{SourceID: "32004L0037", Title: "Directiva 2004/37/CE privind protecția lucrătorilor împotriva riscurilor legate de expunerea la agenți cancerigeni sau mutageni la locul de muncă", ShortName: "Agenți cancerigeni"},
			{SourceID: "31998L0024", Title: "Directiva 98/24/CE privind protecția sănătății și securității lucrătorilor împotriva riscurilor legate de agenți chimici la locul de muncă", ShortName: "Agenți chimici"},
			{SourceID: "32000L0054", Title: "Directiva 2000/54/CE privind protecția lucrătorilor împotriva riscurilor legate de expunerea la agenți biologici la locul de muncă", ShortName: "Agenți biologici"},
			{SourceID: "32003L0010", Title: "Directiva 2003/10/CE privind expunerea lucrătorilor la riscurile generate de zgomot", ShortName: "Zgomot"},
			{SourceID: "32002L0044", Title: "Directiva 2002/44/CE privind expunerea lucrătorilor la riscurile generate de vibrații", ShortName: "Vibrații"},
			{SourceID: "31992L0057", Title: "Directiva 92/57/CEE privind cerințele minime de securitate și sănătate pentru șantierele temporare sau mobile", ShortName: "Șantiere"},
			{SourceID: "31992L0058", Title: "Directiva 92/58/CEE privind cerințele minime pentru semnalizarea de securitate și/sau de sănătate la locul de muncă", ShortName: "Semnalizare"},
			{SourceID: "31992L0085", Title: "Directiva 92/85/CEE privind lucrătoarele gravide, care au născut de curând sau care alăptează", ShortName: "Lucrătoare gravide"},
			{SourceID: "31994L0033", Title: "Directiva 94/33/CE privind protecția tinerilor în muncă", ShortName: "Tineri în muncă"},
			{SourceID: "32003L0088", Title: "Directiva 2003/88/CE privind anumite aspecte ale organizării timpului de lucru", ShortName: "Timpul de lucru"},
			{SourceID: "32006R1907", Title: "Regulamentul (CE) nr. 1907/2006 privind înregistrarea, evaluarea, autorizarea și restricționarea substanțelor chimice", ShortName: "REACH"},
			{SourceID: "32008R1272", Title: "Regulamentul (CE) nr. 1272/2008 privind clasificarea, etichetarea și ambalarea substanțelor și a amestecurilor", ShortName: "CLP"},
			{SourceID: "32023R1230", Title: "Regulamentul (UE) 2023/1230 privind produsele de tip mașină", ShortName: "Regulamentul mașini"},
		},
	}
}

var celexPattern = regexp.MustCompile(`^(\d)(\d{4})([A-Z]{1,2})(\d{4})`)

var celexTypes = map[string]string{
	"L": "directive",
	"R": "regulation",
	"D": "decision",
	"H": "recommendation",
}

// identifyCELEX reads type, year and number from a CELEX identifier,
// e.g. 31989L0391 is Directive 391 of 1989.
func identifyCELEX(sourceID, _ string) identity {
	m := celexPattern.FindStringSubmatch(sourceID)
	if m == nil {
		return identity{}
	}

	year, _ := strconv.Atoi(m[2])
	number, _ := strconv.Atoi(m[4])

	actType, ok := celexTypes[m[3]]
	if !ok {
		actType = "other"
	}

	return identity{
		ActType: actType,
		Number:  fmt.Sprintf("%d/%d", year, number),
		Year:    year,
	}
}
