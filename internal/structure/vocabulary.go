package structure

import "github.com/oplego/lexharvest/internal/model"

// DefaultDomain is used when nothing else fits
const DefaultDomain = "general"

// Domains is the legal-domain vocabulary
var Domains = []string{
	DefaultDomain,
	"ssm",             // securitate și sănătate în muncă
	"psi",             // prevenirea și stingerea incendiilor
	"medicina_muncii", // supravegherea sănătății lucrătorilor
	"echipamente_munca",
	"eip", // echipamente individuale de protecție
	"agenti_chimici",
	"agenti_biologici",
	"agenti_fizici", // zgomot, vibrații, câmpuri electromagnetice
	"ergonomie",
	"constructii",
	"semnalizare",
	"timp_de_munca",
	"grupuri_vulnerabile",
	"mediu",
	"produse", // conformitatea produselor, marcaj CE
	"relatii_de_munca",
}

// Modules are the platform modules an act can feed
var Modules = []string{
	"evaluare_riscuri",
	"instruire",
	"medicina_muncii",
	"eip",
	"echipamente",
	"substante_periculoase",
	"incidente",
	"psi",
	"documentatie",
	"control_inspectie",
	"santiere",
}

// ResponsibleEntities are the roles an obligation can apply to
var ResponsibleEntities = []model.ResponsibleEntity{
	model.EntityEmployer,
	model.EntityEmployee,
	model.EntitySSMService,
	model.EntityOccupationalPhysician,
	model.EntityAuthority,
	model.EntityManufacturer,
	model.EntityOther,
}

// ReferenceTypes are the accepted relationships between acts
var ReferenceTypes = []model.ReferenceType{
	model.RefImplements,
	model.RefAmends,
	model.RefRepeals,
	model.RefReferences,
	model.RefTransposes,
	model.RefSupplements,
	model.RefCites,
}

var (
	domainSet  = toSet(Domains)
	moduleSet  = toSet(Modules)
	entitySet  = toSet(ResponsibleEntities)
	refTypeSet = toSet(ReferenceTypes)
)

func toSet[T ~string](values []T) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[string(v)] = true
	}
	return set
}
