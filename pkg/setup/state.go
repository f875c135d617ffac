package setup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Jesssullivan/DarwinNicUtil/pkg/models"
)

// stateFileName is the well-known name of the persisted setup snapshot
// under the OS temp directory.
const stateFileName = "darwin-nic-setup-state.json"

// resumeWindow is how old a persisted state may be and still be offered
// for resume.
const resumeWindow = 24 * time.Hour

// SetupState is the resumable snapshot of a guided run. It is written
// wholesale after every completed step and deleted on success; a file left
// behind means the run ended early and can be resumed or rolled back.
type SetupState struct {
	CurrentStep            Step                  `json:"current_step"`
	BaselineInterfaceNames []string              `json:"baseline_interface_names"`
	DetectedUSBName        string                `json:"detected_usb_name,omitempty"`
	Config                 *models.NetworkConfig `json:"config,omitempty"`
	Configured             bool                  `json:"configured"`
	Verified               bool                  `json:"verified"`
	TimestampEpochSeconds  float64               `json:"timestamp_epoch_seconds"`
}

// NewSetupState returns a fresh state at StepInitial.
func NewSetupState() *SetupState {
	return &SetupState{
		CurrentStep:           StepInitial,
		TimestampEpochSeconds: float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

// SetBaseline records the pre-insertion interface name set, sorted for a
// stable serialized form.
func (s *SetupState) SetBaseline(names []string) {
	baseline := append([]string(nil), names...)
	sort.Strings(baseline)
	s.BaselineInterfaceNames = baseline
}

// HasBaselineName reports whether name was present before adapter
// insertion.
func (s *SetupState) HasBaselineName(name string) bool {
	for _, n := range s.BaselineInterfaceNames {
		if n == name {
			return true
		}
	}
	return false
}

// Age returns how long ago the state was last saved.
func (s *SetupState) Age() time.Duration {
	saved := time.Unix(0, int64(s.TimestampEpochSeconds*float64(time.Second)))
	return time.Since(saved)
}

// Resumable reports whether this state is worth offering for resume: some
// progress was made and the file is younger than the resume window.
func (s *SetupState) Resumable() bool {
	return s.CurrentStep > StepInitial && s.Age() < resumeWindow
}

// StatePath returns the location of the persisted state file.
func StatePath() string {
	return filepath.Join(os.TempDir(), stateFileName)
}

// Save writes the state to path, overwriting any previous snapshot.
func (s *SetupState) Save(path string) error {
	s.TimestampEpochSeconds = float64(time.Now().UnixNano()) / float64(time.Second)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadState reads a persisted state from path. A missing file returns
// (nil, nil); corrupt contents are an error.
func LoadState(path string) (*SetupState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s SetupState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ClearState removes the persisted state file. Missing is fine.
func ClearState(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
