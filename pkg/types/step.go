package types

// StepSpec is one declared shell command. Its position in the declaring list
// is its execution order.
type StepSpec struct {
	Command string `json:"command" yaml:"command" toml:"command"`
}

// String returns the command text
func (s StepSpec) String() string {
	return s.Command
}
