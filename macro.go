package prompt

// Keyboard macro state attached to a state value. A macro records the raw
// decoded keys (not the bytes) seen between start-kbd-macro and
// end-kbd-macro, and replays them one at a time through
// dispatchCommandLocked, which looks each key up in the flat bindings map
// only. Replay does not walk submaps or keyseqRoot, does not apply
// rootMacros, and does not accumulate digit arguments, so a recorded
// multi-key sequence is not replayed as that sequence.
//
// The macro being recorded and the macro being replayed are independent:
// redefining the last macro while a call-last-kbd-macro replay is still in
// flight does not perturb that in-flight replay, since replay walks a copy
// of the slice captured when call-last-kbd-macro was invoked.
type macroState struct {
	recording bool
	current   []rune
	last      []rune
}

func (m *macroState) start() {
	m.recording = true
	m.current = m.current[:0]
}

func (m *macroState) stop() {
	if !m.recording {
		return
	}
	m.recording = false
	m.last = append([]rune(nil), m.current...)
}

// record appends key to the macro under construction while recording is
// true. state.dispatchOne calls it for every key it dispatches, and
// walkKeymap for every key that runs a function slot, except the keys bound
// to start-kbd-macro and end-kbd-macro. A key that only enters a submap
// (such as Control-X) is not recorded.
func (m *macroState) record(key rune) {
	if m.recording {
		m.current = append(m.current, key)
	}
}

func cmdStartKbdMacroFunc(s *state, key rune) (bool, error) {
	s.macro.start()
	return true, nil
}

func cmdEndKbdMacroFunc(s *state, key rune) (bool, error) {
	s.macro.stop()
	return true, nil
}

// cmdCallLastKbdMacroFunc replays the most recently defined macro by
// re-dispatching each of its keys. Keys produced during replay are not
// themselves re-recorded even if a macro definition happens to be in
// progress, since replay goes through dispatchCommandLocked, which never
// calls record.
func cmdCallLastKbdMacroFunc(s *state, key rune) (bool, error) {
	macro := append([]rune(nil), s.macro.last...)
	for _, k := range macro {
		if _, err := dispatchCommandLocked(s, k); err != nil {
			return true, err
		}
	}
	return true, nil
}
