package memories

import "github.com/dmitrijs2005/moments/internal/models"

// State is what the presentation layer renders.
type State struct {
	Memories []models.Memory
	Loading  bool
	Err      string
}

func cloneMemories(ms []models.Memory) []models.Memory {
	if ms == nil {
		return nil
	}
	out := make([]models.Memory, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	return State{Memories: cloneMemories(m.memories), Loading: m.pending > 0, Err: m.lastErr}
}

// Memories returns a copy of the cached list.
func (m *Manager) Memories() []models.Memory {
	return m.State().Memories
}

// Subscribe returns a channel that receives the latest state after every
// change, and a function that stops delivery and closes the channel. A slow
// reader only misses intermediate states, never the most recent one.
func (m *Manager) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	var once bool
	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(m.subs, id)
		close(ch)
	}
}

func (m *Manager) publish() {
	st := m.State()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}
