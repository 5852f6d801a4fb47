package topology

// Placement is where one key lives. Tag is set only when a hash tag
// narrows the hashed part of the key.
type Placement struct {
	Key    string `json:"key"`
	Tag    string `json:"hash_tag,omitempty"`
	Shard  int    `json:"shard"`
	Master string `json:"master"`
}

// Place returns the placement of key.
func (t *Topology) Place(key string) Placement {
	idx := t.ShardFor([]byte(key))
	p := Placement{Key: key, Shard: idx, Master: t.shards[idx].Master}
	if tag := HashKey([]byte(key)); len(tag) != len(key) {
		p.Tag = string(tag)
	}
	return p
}

// PlaceAll returns the placement of each key, in order.
func (t *Topology) PlaceAll(keys []string) []Placement {
	out := make([]Placement, len(keys))
	for i, k := range keys {
		out[i] = t.Place(k)
	}
	return out
}
