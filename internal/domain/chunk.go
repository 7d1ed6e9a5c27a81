package domain

import (
	"fmt"
	"time"
)

// ChunkKind distinguishes prose chunks from structured derived facts.
type ChunkKind string

const (
	ChunkKindRAGBlock      ChunkKind = "rag_block"
	ChunkKindDerivedLookup ChunkKind = "derived_lookup"
)

// Section is a canonical section tag from the closed classifier vocabulary.
type Section string

const (
	SectionWasteBins           Section = "waste_bins"
	SectionRatesPayments       Section = "rates_payments"
	SectionFeesCharges         Section = "fees_charges"
	SectionFacilitiesHours     Section = "facilities_hours"
	SectionCouncillors         Section = "councillors"
	SectionParkingPermits      Section = "parking_permits"
	SectionPlanningDevelopment Section = "planning_development"
	SectionServiceTimeframes   Section = "service_timeframes"
	SectionServiceRequests     Section = "service_requests"
	SectionGeneral             Section = "general"
)

// Priority tiers: lower value ranks higher. Derived lookups outrank everything,
// emergency content outranks routine sections.
const (
	PriorityDerived     = 1
	PriorityEmergency   = 2
	PriorityHighTraffic = 3
	PriorityDefault     = 5
)

// KnowledgeChunk is one unit of embeddable, retrievable tenant knowledge.
type KnowledgeChunk struct {
	ID          string
	TenantID    string
	Source      string
	Section     Section
	Kind        ChunkKind
	Content     string
	Embedding   []float32
	Priority    int
	ChunkIndex  int
	ContentHash string
	Metadata    map[string]string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HeadingBlock is the ephemeral unit produced by the document parser.
// It is consumed by the chunker and extractors and never persisted.
type HeadingBlock struct {
	Heading string
	Body    string
}

// CollectionDay is a derived lookup fact parsed from a bin-collection block.
type CollectionDay struct {
	Suburb     string
	TypicalDay string
	Division   string
}

// ValidateKnowledgeChunk validates a KnowledgeChunk before it is written.
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}

	if c.TenantID == "" {
		return fmt.Errorf("knowledge chunk TenantID is required")
	}

	if c.Source == "" {
		return fmt.Errorf("knowledge chunk Source is required")
	}

	if c.Content == "" {
		return fmt.Errorf("knowledge chunk Content is required")
	}

	if c.ContentHash == "" {
		return fmt.Errorf("knowledge chunk ContentHash is required")
	}

	if !isValidSection(c.Section) {
		return fmt.Errorf("knowledge chunk Section is invalid: %s", c.Section)
	}

	if !isValidChunkKind(c.Kind) {
		return fmt.Errorf("knowledge chunk Kind is invalid: %s", c.Kind)
	}

	return nil
}

// isValidSection checks if a Section belongs to the closed vocabulary.
func isValidSection(s Section) bool {
	switch s {
	case SectionWasteBins, SectionRatesPayments, SectionFeesCharges,
		SectionFacilitiesHours, SectionCouncillors, SectionParkingPermits,
		SectionPlanningDevelopment, SectionServiceTimeframes,
		SectionServiceRequests, SectionGeneral:
		return true
	}
	return false
}

// isValidChunkKind checks if a ChunkKind is valid.
func isValidChunkKind(k ChunkKind) bool {
	switch k {
	case ChunkKindRAGBlock, ChunkKindDerivedLookup:
		return true
	}
	return false
}
