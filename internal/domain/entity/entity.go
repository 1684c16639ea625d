package entity

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	idRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	typeRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

const (
	// MaxIDLength is the maximum entity and campaign identifier length.
	MaxIDLength = 256
	// MaxNameLength is the maximum entity name length in runes.
	MaxNameLength = 200
	// MaxDescriptionSize is the maximum description size in bytes.
	MaxDescriptionSize = 262144 // 256KB
)

// Type is the category tag of an entity (npc, location, quest, ...).
type Type string

// Well-known entity types. Any lowercase tag is accepted; these get dedicated
// styling in the viewer.
const (
	TypeSession   Type = "session"
	TypeCharacter Type = "character"
	TypeNPC       Type = "npc"
	TypeLocation  Type = "location"
	TypeQuest     Type = "quest"
	TypeFaction   Type = "faction"
	TypeEncounter Type = "encounter"
)

// IsValid checks the tag format.
func (t Type) IsValid() bool {
	return len(t) <= 64 && typeRegex.MatchString(string(t))
}

// Record is a catalog entry (immutable value object).
type Record struct {
	id          string
	name        string
	entityType  Type
	iconURL     string
	description string
	attributes  map[string]AttributeValue
}

// ValidateID checks an entity or campaign identifier: ^[a-zA-Z0-9_-]+$, 1-256 chars.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("identifier is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("identifier too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("identifier must be alphanumeric with underscores and hyphens")
	}
	return nil
}

// New validates and creates a Record.
// Name must be 2..200 runes after trimming; Type must be a lowercase tag.
func New(
	id, name string, entityType Type, iconURL, description string,
	attributes map[string]AttributeValue,
) (Record, error) {
	if err := ValidateID(id); err != nil {
		return Record{}, fmt.Errorf("entity id: %w", err)
	}
	trimmed := strings.TrimSpace(name)
	n := utf8.RuneCountInString(trimmed)
	if n < 2 {
		return Record{}, fmt.Errorf("entity name must have at least 2 characters")
	}
	if n > MaxNameLength {
		return Record{}, fmt.Errorf("entity name too long (max %d)", MaxNameLength)
	}
	if !entityType.IsValid() {
		return Record{}, fmt.Errorf("invalid entity type: %q", entityType)
	}
	if len(description) > MaxDescriptionSize {
		return Record{}, fmt.Errorf("description too large (max %d bytes)", MaxDescriptionSize)
	}

	return Record{
		id:          id,
		name:        trimmed,
		entityType:  entityType,
		iconURL:     iconURL,
		description: description,
		attributes:  cloneAttributes(attributes),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
// The index builder is responsible for skipping malformed hydrated records.
func Reconstruct(
	id, name string, entityType Type, iconURL, description string,
	attributes map[string]AttributeValue,
) Record {
	return Record{
		id: id, name: name, entityType: entityType, iconURL: iconURL,
		description: description, attributes: attributes,
	}
}

// ID returns the entity identifier.
func (r Record) ID() string { return r.id }

// Name returns the display name.
func (r Record) Name() string { return r.name }

// Type returns the category tag.
func (r Record) Type() Type { return r.entityType }

// IconURL returns the optional preview icon URL.
func (r Record) IconURL() string { return r.iconURL }

// Description returns the markdown description.
func (r Record) Description() string { return r.description }

// Attributes returns the typed attribute values.
func (r Record) Attributes() map[string]AttributeValue { return r.attributes }

func cloneAttributes(m map[string]AttributeValue) map[string]AttributeValue {
	if m == nil {
		return nil
	}
	c := make(map[string]AttributeValue, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
