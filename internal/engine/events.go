package engine

import "encoding/json"

// OnSelectedPrimitive calls fn with the primitives the user selected while
// the scene action is SELECT. It returns a function that removes fn.
// Payloads that do not decode are logged and skipped.
func (e *Engine) OnSelectedPrimitive(fn func([]SelectedPrimitive)) func() {
	return e.c.Subscribe(EventSelectedPrimitive, func(data json.RawMessage) {
		var sel []SelectedPrimitive
		if err := json.Unmarshal(data, &sel); err != nil {
			e.log.Warn().Err(err).Str("event", EventSelectedPrimitive).Msg("undecodable event")
			return
		}
		fn(sel)
	})
}

// OnTouch calls fn with raw touches while the scene action is TOUCH.
func (e *Engine) OnTouch(fn func(TouchEvent)) func() {
	return e.c.Subscribe(EventTouch, func(data json.RawMessage) {
		var ev TouchEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			e.log.Warn().Err(err).Str("event", EventTouch).Msg("undecodable event")
			return
		}
		fn(ev)
	})
}
