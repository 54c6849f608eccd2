package model

// Document is one indexed file as stored in the vector store. The same
// id identifies the file in both the text and the image collection.
type Document struct {
	ID             string
	Caption        string
	TextEmbedding  []float32
	ImageEmbedding []float32
	Path           string
}
