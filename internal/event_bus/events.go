package event_bus

const ScenarioStateChangedType EventType = "scenario.state.changed"

// ScenarioStateChanged is published after a mutation replaced the scenario state.
type ScenarioStateChanged struct {
	// Version is the state version after the change, it grows by one per mutation.
	Version    int64
	Operation  string
	ScenarioId string
}
