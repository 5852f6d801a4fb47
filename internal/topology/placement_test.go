package topology

import "testing"

func TestPlace(t *testing.T) {
	topo := mustTopology(t, 3)

	tests := []struct {
		key     string
		wantTag string
	}{
		{"user:1", ""},
		{"{user:1}.cart", "user:1"},
		{"{}.empty", ""},
		{"a{b}c{d}", "b"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p := topo.Place(tt.key)
			if p.Key != tt.key || p.Tag != tt.wantTag {
				t.Errorf("Place(%q) = %+v, want tag %q", tt.key, p, tt.wantTag)
			}
			if want := topo.ShardFor([]byte(tt.key)); p.Shard != want {
				t.Errorf("Shard = %d, want %d", p.Shard, want)
			}
			if p.Master != topo.Shard(p.Shard).Master {
				t.Errorf("Master = %q", p.Master)
			}
		})
	}
}

func TestPlaceAll(t *testing.T) {
	topo := mustTopology(t, 4)

	got := topo.PlaceAll([]string{"user:1", "{user:1}.cart", "b"})
	if len(got) != 3 || got[2].Key != "b" {
		t.Fatalf("PlaceAll() = %+v", got)
	}
	if got[0].Shard != got[1].Shard {
		t.Error("hash tag did not colocate {user:1}.cart with user:1")
	}
	if len(topo.PlaceAll(nil)) != 0 {
		t.Error("PlaceAll(nil) not empty")
	}
}

func mustTopology(t *testing.T, n int) *Topology {
	t.Helper()
	topo, err := New(slices(n))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return topo
}
