package models

const (
	// CitationPreviewLen is how many characters of a retrieved chunk end up in
	// its citation. Citations with identical previews collapse into one.
	CitationPreviewLen = 200

	// UnknownPage is rendered when a chunk could not be attributed to a page.
	UnknownPage = "unknown"
)

const (
	SystemPrompt = "You are a helpful assistant that answers questions based strictly on the provided document context. If the answer is not in the context, say 'I couldn't find that information in the uploaded document.'"

	UserPromptTemplate = `Context from document:
%s

Chat History:
%s

Question: %s`
)
