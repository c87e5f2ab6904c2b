package domain

import "context"

// Metadata carries the attributes of the original question a doctor answered.
type Metadata struct {
	Question         string `json:"question"`
	DoctorTitle      string `json:"doctor_title"`
	DoctorSpeciality string `json:"doctor_speciality"`
}

// Document is one indexed doctor answer. Content holds the answer text.
// ID is assigned by the vector store at write time when empty.
type Document struct {
	ID      string   `json:"id,omitempty"`
	Content string   `json:"content"`
	Meta    Metadata `json:"meta"`
}

// SearchResult represents a matching document with a relevance score.
type SearchResult struct {
	Document Document
	Score    float64
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn sent to or received from the generator.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Generator produces a reply for an assembled chat prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (string, error)
}
