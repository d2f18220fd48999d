package extract

import "github.com/vyasa-labs/granthika/model"

// EntityPattern describes one known corpus entity: how it appears in the
// Sanskrit text, in English translation, under epithets, and which context
// words make a match more trustworthy.
type EntityPattern struct {
	Canonical string // normalized form all spellings resolve to
	Type      model.EntityType
	Sanskrit  []string // Devanagari surface forms
	English   []string // English surface forms, matched case-insensitively
	Epithets  []string // alternate names; a match adds the epithet boost
	Context   []string // nearby words that raise confidence
	Base      float64  // base confidence before layer and boost adjustments
}

// Confidence adjustments applied on top of a pattern's base confidence.
const (
	contextBoost  = 0.05
	epithetBoost  = 0.10
	maxConfidence = 1.0
)

// EntityPatterns is the curated pattern table for the epic's recurring
// entities. Surface forms and epithets follow the critical edition's usage.
var EntityPatterns = []EntityPattern{
	{
		Canonical: "rama",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"राम", "रामः", "रामम्", "रामस्य", "रामेण"},
		English:   []string{"Rama", "Raama"},
		Epithets:  []string{"Raghava", "Raghunandana", "Kakutstha", "Dasharathi"},
		Context:   []string{"prince", "Ayodhya", "bow", "exile"},
		Base:      0.95,
	},
	{
		Canonical: "sita",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"सीता", "सीताम्", "सीतायाः"},
		English:   []string{"Sita", "Seetha"},
		Epithets:  []string{"Vaidehi", "Janaki", "Maithili"},
		Context:   []string{"princess", "Mithila", "Janaka"},
		Base:      0.95,
	},
	{
		Canonical: "lakshmana",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"लक्ष्मण", "लक्ष्मणः", "लक्ष्मणम्"},
		English:   []string{"Lakshmana", "Lakshman"},
		Epithets:  []string{"Saumitri"},
		Context:   []string{"brother", "Sumitra"},
		Base:      0.93,
	},
	{
		Canonical: "bharata",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"भरत", "भरतः", "भरतम्"},
		English:   []string{"Bharata"},
		Epithets:  []string{"Kaikeyinandana"},
		Context:   []string{"brother", "Kaikeyi", "sandals"},
		Base:      0.9,
	},
	{
		Canonical: "hanuman",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"हनुमान्", "हनुमन्तम्", "हनूमान्"},
		English:   []string{"Hanuman", "Hanumaan"},
		Epithets:  []string{"Maruti", "Anjaneya", "Pavanaputra", "Vayuputra"},
		Context:   []string{"vanara", "leap", "ocean", "devotee"},
		Base:      0.94,
	},
	{
		Canonical: "ravana",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"रावण", "रावणः", "रावणम्", "रावणस्य"},
		English:   []string{"Ravana", "Raavana"},
		Epithets:  []string{"Dashagriva", "Dashanana", "Lankesha"},
		Context:   []string{"rakshasa", "Lanka", "ten"},
		Base:      0.94,
	},
	{
		Canonical: "dasharatha",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"दशरथ", "दशरथः", "दशरथस्य"},
		English:   []string{"Dasharatha", "Dasaratha"},
		Context:   []string{"king", "Ayodhya", "Kosala"},
		Base:      0.92,
	},
	{
		Canonical: "valmiki",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"वाल्मीकि", "वाल्मीकिः"},
		English:   []string{"Valmiki", "Vaalmiki"},
		Epithets:  []string{"Adikavi"},
		Context:   []string{"sage", "poet", "hermitage"},
		Base:      0.92,
	},
	{
		Canonical: "sugriva",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"सुग्रीव", "सुग्रीवः", "सुग्रीवम्"},
		English:   []string{"Sugriva", "Sugreeva"},
		Context:   []string{"vanara", "Kishkindha", "alliance"},
		Base:      0.9,
	},
	{
		Canonical: "vibhishana",
		Type:      model.EntityTypePerson,
		Sanskrit:  []string{"विभीषण", "विभीषणः"},
		English:   []string{"Vibhishana", "Vibheeshana"},
		Context:   []string{"rakshasa", "Lanka", "righteous"},
		Base:      0.9,
	},
	{
		Canonical: "ayodhya",
		Type:      model.EntityTypePlace,
		Sanskrit:  []string{"अयोध्या", "अयोध्याम्", "अयोध्यायाम्"},
		English:   []string{"Ayodhya", "Ayodhyaa"},
		Context:   []string{"city", "Kosala", "Sarayu"},
		Base:      0.92,
	},
	{
		Canonical: "lanka",
		Type:      model.EntityTypePlace,
		Sanskrit:  []string{"लङ्का", "लङ्काम्", "लङ्कायाम्"},
		English:   []string{"Lanka", "Lankaa"},
		Context:   []string{"island", "ocean", "golden"},
		Base:      0.92,
	},
	{
		Canonical: "mithila",
		Type:      model.EntityTypePlace,
		Sanskrit:  []string{"मिथिला", "मिथिलाम्"},
		English:   []string{"Mithila", "Mithilaa"},
		Context:   []string{"Janaka", "Videha"},
		Base:      0.9,
	},
	{
		Canonical: "kishkindha",
		Type:      model.EntityTypePlace,
		Sanskrit:  []string{"किष्किन्धा", "किष्किन्धाम्"},
		English:   []string{"Kishkindha", "Kishkindhaa"},
		Context:   []string{"vanara", "cave"},
		Base:      0.9,
	},
	{
		Canonical: "dandaka",
		Type:      model.EntityTypePlace,
		Sanskrit:  []string{"दण्डक", "दण्डकारण्य"},
		English:   []string{"Dandaka", "Dandakaranya"},
		Context:   []string{"forest", "exile"},
		Base:      0.88,
	},
	{
		Canonical: "sarayu",
		Type:      model.EntityTypePlace,
		Sanskrit:  []string{"सरयू", "सरयूम्"},
		English:   []string{"Sarayu", "Sarayoo"},
		Context:   []string{"river", "Ayodhya"},
		Base:      0.88,
	},
	{
		Canonical: "exile_of_rama",
		Type:      model.EntityTypeEvent,
		English:   []string{"exile of Rama", "fourteen years of exile"},
		Context:   []string{"forest", "Kaikeyi", "boon"},
		Base:      0.85,
	},
	{
		Canonical: "abduction_of_sita",
		Type:      model.EntityTypeEvent,
		English:   []string{"abduction of Sita", "Sita's abduction"},
		Context:   []string{"Ravana", "chariot", "Panchavati"},
		Base:      0.85,
	},
	{
		Canonical: "war_of_lanka",
		Type:      model.EntityTypeEvent,
		English:   []string{"war of Lanka", "battle of Lanka", "siege of Lanka"},
		Context:   []string{"army", "bridge", "vanara"},
		Base:      0.85,
	},
	{
		Canonical: "bow_of_shiva",
		Type:      model.EntityTypeObject,
		Sanskrit:  []string{"शिवधनुः", "पिनाक"},
		English:   []string{"bow of Shiva", "Shiva's bow", "Pinaka"},
		Context:   []string{"Janaka", "lift", "string"},
		Base:      0.86,
	},
	{
		Canonical: "pushpaka_vimana",
		Type:      model.EntityTypeObject,
		Sanskrit:  []string{"पुष्पक", "पुष्पकम्"},
		English:   []string{"Pushpaka", "Pushpaka Vimana"},
		Context:   []string{"chariot", "aerial", "Kubera"},
		Base:      0.86,
	},
	{
		Canonical: "dharma",
		Type:      model.EntityTypeConcept,
		Sanskrit:  []string{"धर्म", "धर्मः", "धर्मम्", "धर्मस्य"},
		English:   []string{"dharma"},
		Context:   []string{"righteousness", "duty", "truth"},
		Base:      0.82,
	},
	{
		Canonical: "karma",
		Type:      model.EntityTypeConcept,
		Sanskrit:  []string{"कर्म", "कर्मणा", "कर्मणः"},
		English:   []string{"karma"},
		Context:   []string{"action", "fruit", "deed"},
		Base:      0.8,
	},
}

// SeedRelationship is a relationship the corpus scholarship treats as
// settled. Discovery asserts a seed once both endpoints exist in the store.
type SeedRelationship struct {
	Subject    string // normalized entity form
	Predicate  model.Predicate
	Object     string
	Confidence float64
}

// SeedRelationships lists the settled relationships between pattern-table
// entities.
var SeedRelationships = []SeedRelationship{
	{Subject: "rama", Predicate: model.PredicateHasSpouse, Object: "sita", Confidence: 0.99},
	{Subject: "rama", Predicate: model.PredicateHasParent, Object: "dasharatha", Confidence: 0.99},
	{Subject: "rama", Predicate: model.PredicateHasSibling, Object: "lakshmana", Confidence: 0.99},
	{Subject: "rama", Predicate: model.PredicateHasSibling, Object: "bharata", Confidence: 0.99},
	{Subject: "rama", Predicate: model.PredicateBornIn, Object: "ayodhya", Confidence: 0.98},
	{Subject: "rama", Predicate: model.PredicateEnemyOf, Object: "ravana", Confidence: 0.98},
	{Subject: "rama", Predicate: model.PredicateEmbodies, Object: "dharma", Confidence: 0.9},
	{Subject: "hanuman", Predicate: model.PredicateDevoteeOf, Object: "rama", Confidence: 0.98},
	{Subject: "ravana", Predicate: model.PredicateRules, Object: "lanka", Confidence: 0.98},
	{Subject: "ravana", Predicate: model.PredicateHasSibling, Object: "vibhishana", Confidence: 0.97},
	{Subject: "dasharatha", Predicate: model.PredicateRules, Object: "ayodhya", Confidence: 0.98},
	{Subject: "sugriva", Predicate: model.PredicateRules, Object: "kishkindha", Confidence: 0.96},
	{Subject: "sita", Predicate: model.PredicateBornIn, Object: "mithila", Confidence: 0.96},
}
