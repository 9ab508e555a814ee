package domain

import "time"

// KnowledgeBaseEntry is static self-service reference content.
type KnowledgeBaseEntry struct {
	ID        string    `yaml:"id" json:"id"`
	Title     string    `yaml:"title" json:"title"`
	Content   string    `yaml:"content" json:"content"`
	Keywords  string    `yaml:"keywords" json:"keywords"`
	Category  string    `yaml:"category" json:"category"`
	Position  int       `yaml:"-" json:"-"`
	CreatedAt time.Time `yaml:"-" json:"-"`
}
