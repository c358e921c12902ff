package service

// messageCatalog holds the user-facing texts for degraded answers in one
// language.
type messageCatalog struct {
	NoDocuments   string
	LowRelevance  string
	DidYouMean    string
	SystemPrompt  string
	ContextIntro  string
	QuestionIntro string
}

var catalogs = map[string]messageCatalog{
	"en": {
		NoDocuments:   "No relevant documents were found for your question. Try rephrasing it or using different keywords.",
		LowRelevance:  "The documents found did not seem relevant enough to answer reliably. Try a more specific question.",
		DidYouMean:    "Did you mean: %v",
		SystemPrompt:  "You are an assistant answering questions strictly from the provided document excerpts. Answer only with information supported by the excerpts. If the excerpts do not contain the answer, say so. Cite the sources you used. Answer in English.",
		ContextIntro:  "Document excerpts:",
		QuestionIntro: "Question:",
	},
	"fr": {
		NoDocuments:   "Aucun document pertinent n'a été trouvé pour votre question. Essayez de la reformuler ou d'utiliser d'autres mots-clés.",
		LowRelevance:  "Les documents trouvés ne semblent pas assez pertinents pour répondre de manière fiable. Essayez une question plus précise.",
		DidYouMean:    "Vouliez-vous dire : %v",
		SystemPrompt:  "Tu es un assistant qui répond aux questions uniquement à partir des extraits de documents fournis. Réponds seulement avec les informations présentes dans les extraits. Si les extraits ne contiennent pas la réponse, dis-le. Cite les sources utilisées. Réponds en français.",
		ContextIntro:  "Extraits de documents :",
		QuestionIntro: "Question :",
	},
}

// catalogFor returns the message catalog for a language code, falling back
// to English for unknown codes.
func catalogFor(language string) messageCatalog {
	if catalog, ok := catalogs[language]; ok {
		return catalog
	}
	return catalogs["en"]
}
