package models

import "github.com/google/uuid"

type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockTodo      BlockType = "todo"
	BlockCode      BlockType = "code"
	BlockQuote     BlockType = "quote"
	BlockListItem  BlockType = "list_item"
)

func ValidBlockType(t BlockType) bool {
	switch t {
	case BlockParagraph, BlockHeading, BlockTodo, BlockCode, BlockQuote, BlockListItem:
		return true
	default:
		return false
	}
}

// Block is one editor fragment of a note. Position is a fractional-index
// string; ordering is lexicographic and the client picks the values.
type Block struct {
	BaseModel
	NoteID   uuid.UUID  `json:"note_id" gorm:"type:uuid;index;not null"`
	ParentID *uuid.UUID `json:"parent_id" gorm:"type:uuid"`
	Type     BlockType  `json:"type" gorm:"type:varchar(20);not null;default:'paragraph'"`
	Content  JSONMap    `json:"content" gorm:"type:text"`
	Position string     `json:"position" gorm:"type:varchar(64);not null"`
}
