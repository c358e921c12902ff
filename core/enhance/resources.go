package enhance

// technicalTerms are domain words that must never be altered by spell
// correction. Matching is case insensitive.
var technicalTerms = []string{
	"api", "sql", "http", "https", "json", "xml", "csv", "pdf",
	"oauth", "jwt", "ssl", "tls", "dns", "url", "uri", "uuid",
	"postgresql", "pgvector", "onnx", "webhook", "endpoint",
	"kubernetes", "docker", "devops", "backend", "frontend",
	"siret", "siren", "kbis", "urssaf", "tva", "rgpd",
}

// abbreviations maps common short forms to their expansions. French forms
// come first since most indexed content is French.
var abbreviations = map[string]string{
	"nb":     "nombre",
	"qté":    "quantité",
	"qte":    "quantité",
	"réf":    "référence",
	"ref":    "référence",
	"tél":    "téléphone",
	"tel":    "téléphone",
	"admin":  "administration",
	"info":   "information",
	"infos":  "informations",
	"doc":    "document",
	"docs":   "documents",
	"max":    "maximum",
	"min":    "minimum",
	"num":    "numéro",
	"pct":    "pourcentage",
	"rdv":    "rendez-vous",
	"svp":    "s'il vous plaît",
	"cad":    "c'est-à-dire",
	"config": "configuration",
	"auth":   "authentification",
}

// synonyms maps a word to alternatives used to build query variations.
var synonyms = map[string][]string{
	"document":  {"fichier", "dossier", "pièce"},
	"documents": {"fichiers", "dossiers", "pièces"},
	"procédure": {"processus", "démarche", "méthode"},
	"erreur":    {"problème", "anomalie", "incident"},
	"facture":   {"note", "relevé"},
	"contrat":   {"accord", "convention"},
	"client":    {"utilisateur", "usager"},
	"paiement":  {"règlement", "versement"},
	"demande":   {"requête", "requete"},
	"modifier":  {"changer", "mettre à jour"},
	"supprimer": {"effacer", "retirer"},
	"créer":     {"ajouter", "établir"},
	"error":     {"issue", "failure", "problem"},
	"delete":    {"remove", "erase"},
	"create":    {"add", "make"},
	"update":    {"modify", "change"},
	"search":    {"find", "lookup", "query"},
}

// stopWords are excluded from spell correction and synonym substitution.
var stopWords = map[string]struct{}{
	// French
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {},
	"de": {}, "du": {}, "et": {}, "ou": {}, "est": {}, "sont": {},
	"dans": {}, "pour": {}, "par": {}, "sur": {}, "avec": {}, "que": {},
	"qui": {}, "quoi": {}, "quel": {}, "quelle": {}, "comment": {},
	"pourquoi": {}, "où": {}, "ce": {}, "cette": {}, "ces": {},
	"je": {}, "tu": {}, "il": {}, "elle": {}, "nous": {}, "vous": {},
	"au": {}, "aux": {}, "se": {}, "sa": {}, "son": {}, "ses": {},
	"ne": {}, "pas": {}, "plus": {}, "mon": {}, "ma": {}, "mes": {},
	// English
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "or": {},
	"is": {}, "are": {}, "in": {}, "for": {}, "on": {}, "with": {},
	"to": {}, "what": {}, "which": {}, "how": {}, "why": {}, "where": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
}

// vocabulary seeds the spell correction model. It holds the well-spelled
// forms queries are corrected toward.
var vocabulary = []string{
	"document", "documents", "fichier", "fichiers", "dossier", "dossiers",
	"procédure", "procédures", "processus", "démarche", "méthode",
	"erreur", "erreurs", "problème", "problèmes", "anomalie", "incident",
	"facture", "factures", "contrat", "contrats", "client", "clients",
	"paiement", "paiements", "règlement", "versement", "demande",
	"requête", "référence", "téléphone", "numéro", "quantité", "nombre",
	"information", "informations", "administration", "configuration",
	"authentification", "rendez-vous", "pourcentage", "maximum", "minimum",
	"modifier", "supprimer", "créer", "ajouter", "changer", "effacer",
	"utilisateur", "usager", "accord", "convention", "pièce", "pièces",
	"error", "errors", "delete", "create", "update", "search", "find",
	"remove", "modify", "change", "lookup", "query", "file", "files",
	"invoice", "contract", "payment", "request", "reference", "number",
	"user", "account", "settings", "password", "email", "address",
}
