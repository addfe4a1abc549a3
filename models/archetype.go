package models

import (
	"fmt"
	"strings"
)

// Location is the place archetype picked in the first stage
type Location string

const (
	LocationMarket    Location = "market"
	LocationLibrary   Location = "library"
	LocationResidence Location = "residence"
	LocationWorkshop  Location = "workshop"
)

// Tool is the instrument archetype picked in the second stage
type Tool string

const (
	ToolLens      Tool = "lens"
	ToolCompass   Tool = "compass"
	ToolQuill     Tool = "quill"
	ToolRepairKit Tool = "repair_kit"
)

// Locations lists the location archetypes in presentation order
var Locations = []Location{LocationMarket, LocationLibrary, LocationResidence, LocationWorkshop}

// Tools lists the tool archetypes in presentation order
var Tools = []Tool{ToolLens, ToolCompass, ToolQuill, ToolRepairKit}

// ParseLocation accepts the canonical id, case-insensitively
func ParseLocation(s string) (Location, error) {
	v := Location(strings.ToLower(strings.TrimSpace(s)))
	for _, loc := range Locations {
		if loc == v {
			return loc, nil
		}
	}
	return "", fmt.Errorf("unknown location %q", s)
}

// ParseTool accepts the canonical id, case-insensitively. "repairkit" and
// "repair-kit" are accepted for the repair kit.
func ParseTool(s string) (Tool, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	if norm == "repairkit" {
		norm = string(ToolRepairKit)
	}
	for _, t := range Tools {
		if string(t) == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Archetype is one selectable option with its human-readable descriptor
type Archetype struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Descriptor string `json:"descriptor" yaml:"descriptor"`
}

// Catalog holds the descriptors shown to the user and handed to the model
type Catalog struct {
	Locations []Archetype `json:"locations" yaml:"locations"`
	Tools     []Archetype `json:"tools" yaml:"tools"`
}

// DefaultCatalog returns the built-in descriptors
func DefaultCatalog() Catalog {
	return Catalog{
		Locations: []Archetype{
			{ID: string(LocationMarket), Name: "시장 (Market)", Descriptor: "사람과 거래가 모이는 곳, 관계와 교환에서 가치를 찾는 사람"},
			{ID: string(LocationLibrary), Name: "도서관 (Library)", Descriptor: "지식이 쌓이는 곳, 배우고 정리하는 데서 가치를 찾는 사람"},
			{ID: string(LocationResidence), Name: "집 (Residence)", Descriptor: "삶이 머무는 곳, 돌봄과 일상에서 가치를 찾는 사람"},
			{ID: string(LocationWorkshop), Name: "작업장 (Workshop)", Descriptor: "무언가를 만드는 곳, 손으로 고치고 짓는 데서 가치를 찾는 사람"},
		},
		Tools: []Archetype{
			{ID: string(ToolLens), Name: "돋보기 (Lens)", Descriptor: "세밀하게 관찰하고 분석하는 힘"},
			{ID: string(ToolCompass), Name: "나침반 (Compass)", Descriptor: "방향을 잡고 사람들을 이끄는 힘"},
			{ID: string(ToolQuill), Name: "깃펜 (Quill)", Descriptor: "기록하고 표현하고 설득하는 힘"},
			{ID: string(ToolRepairKit), Name: "수리 키트 (Repair Kit)", Descriptor: "망가진 것을 고치고 문제를 해결하는 힘"},
		},
	}
}

// Merge overlays non-empty fields from other onto c, matching entries by ID.
// Unknown IDs in other are ignored.
func (c Catalog) Merge(other Catalog) Catalog {
	out := Catalog{
		Locations: mergeArchetypes(c.Locations, other.Locations),
		Tools:     mergeArchetypes(c.Tools, other.Tools),
	}
	return out
}

func mergeArchetypes(base, overlay []Archetype) []Archetype {
	out := make([]Archetype, len(base))
	copy(out, base)
	for _, o := range overlay {
		for i := range out {
			if out[i].ID != o.ID {
				continue
			}
			if o.Name != "" {
				out[i].Name = o.Name
			}
			if o.Descriptor != "" {
				out[i].Descriptor = o.Descriptor
			}
		}
	}
	return out
}

// Location returns the archetype entry for loc
func (c Catalog) Location(loc Location) Archetype {
	return lookup(c.Locations, string(loc))
}

// Tool returns the archetype entry for t
func (c Catalog) Tool(t Tool) Archetype {
	return lookup(c.Tools, string(t))
}

func lookup(list []Archetype, id string) Archetype {
	for _, a := range list {
		if a.ID == id {
			return a
		}
	}
	return Archetype{ID: id, Name: id, Descriptor: id}
}

// ArchetypeChoice is the location/tool pair recorded during the first two stages.
// Zero values mean "not chosen yet".
type ArchetypeChoice struct {
	Location Location `json:"location,omitempty" bson:"location"`
	Tool     Tool     `json:"tool,omitempty" bson:"tool"`
}
