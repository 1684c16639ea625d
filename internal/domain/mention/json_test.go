package mention

import (
	"encoding/json"
	"testing"

	"github.com/kailas-cloud/lorelink/internal/domain/entity"
)

func TestIndex_MarshalJSON(t *testing.T) {
	idx := Build([]entity.Record{
		entity.Reconstruct("npc-aerith", "Aerith", entity.TypeNPC, "/icons/aerith.png", "Flower seller", nil),
		entity.Reconstruct("loc-midgar", "Midgar", entity.TypeLocation, "", "", nil),
		entity.Reconstruct("npc-aerith-2", "aerith", entity.TypeNPC, "", "", nil),
	}, 7)

	data, err := json.Marshal(idx)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Version      int64                        `json:"version"`
		SearchTokens []SearchToken                `json:"searchTokens"`
		ByID         map[string]map[string]string `json:"byId"`
		Duplicates   []Duplicate                  `json:"duplicates"`
		List         any                          `json:"list"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Version != 7 || len(got.SearchTokens) != 3 {
		t.Errorf("unexpected payload: %s", data)
	}
	if got.ByID["npc-aerith"]["previewIconUrl"] != "/icons/aerith.png" {
		t.Errorf("byId = %v", got.ByID)
	}
	if _, ok := got.ByID["npc-aerith"]["description"]; ok {
		t.Error("description must not be part of the index payload")
	}
	if len(got.Duplicates) != 1 || got.Duplicates[0].Term != "aerith" {
		t.Errorf("duplicates = %+v", got.Duplicates)
	}
	if got.List != nil {
		t.Error("legacy list field must not be emitted")
	}
}

func TestIndex_MarshalJSONEmpty(t *testing.T) {
	data, err := json.Marshal(Build(nil, 0))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":0,"searchTokens":[],"byId":{},"duplicates":[]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestIndex_EntityIDsSorted(t *testing.T) {
	idx := Build([]entity.Record{
		entity.Reconstruct("b", "Bravo", entity.TypeNPC, "", "", nil),
		entity.Reconstruct("a", "Alpha", entity.TypeNPC, "", "", nil),
	}, 1)
	ids := idx.EntityIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("ids = %v", ids)
	}
}
