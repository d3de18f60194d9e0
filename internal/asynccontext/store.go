package asynccontext

// Store modes reported by Store.Mode.
const (
	ModeEmbedder = "embedder"
	ModeLocal    = "local"
)

// EmbedderBridge is a host-provided, continuation-preserving slot. Values
// written through it must be visible to every continuation scheduled while
// they were current.
type EmbedderBridge interface {
	ContinuationPreservedEmbedderData() any
	SetContinuationPreservedEmbedderData(value any)
}

// Store reads and writes the current snapshot.
type Store interface {
	Current() *Snapshot
	SetCurrent(s *Snapshot)
	Mode() string
}

// NewStore selects the store implementation once. A nil bridge yields a store
// that owns its own fallback slot.
func NewStore(bridge EmbedderBridge) Store {
	if bridge == nil {
		return &localStore{}
	}
	return &embedderStore{bridge: bridge}
}

type embedderStore struct {
	bridge EmbedderBridge
}

// Current normalises foreign slot contents to the empty snapshot; other
// integrations may share the same embedder slot.
func (s *embedderStore) Current() *Snapshot {
	snap, _ := s.bridge.ContinuationPreservedEmbedderData().(*Snapshot)
	return snap
}

func (s *embedderStore) SetCurrent(snap *Snapshot) {
	s.bridge.SetContinuationPreservedEmbedderData(snap)
}

func (s *embedderStore) Mode() string { return ModeEmbedder }

type localStore struct {
	current *Snapshot
}

func (s *localStore) Current() *Snapshot        { return s.current }
func (s *localStore) SetCurrent(snap *Snapshot) { s.current = snap }
func (s *localStore) Mode() string              { return ModeLocal }

// Observer is notified about snapshot installs. It lets metrics collectors
// watch the store without the store depending on them.
type Observer interface {
	SnapshotInstalled(mode string)
}

type observedStore struct {
	Store
	observer Observer
}

func (s *observedStore) SetCurrent(snap *Snapshot) {
	s.Store.SetCurrent(snap)
	s.observer.SnapshotInstalled(s.Store.Mode())
}
