package form

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"eligicert/internal/models"
)

// Field names, matching the HTML input names.
const (
	FieldName         = "name"
	FieldTenthMarks   = "tenthMarks"
	FieldTwelfthMarks = "twelfthMarks"
	FieldPhoto        = "photo"
)

// State holds the raw values of the application form and the error map
// produced by the last Validate call.
type State struct {
	mu sync.Mutex

	name         string
	tenthMarks   string
	twelfthMarks string
	photo        *models.Photo
	errors       map[string]string

	// photoGen is bumped by every photo selection or clear. A load only
	// lands if its ticket is still current when it finishes.
	photoGen uint64

	maxPhotoBytes int64
}

// New returns an empty form. maxPhotoBytes <= 0 uses DefaultMaxPhotoBytes.
func New(maxPhotoBytes int64) *State {
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = DefaultMaxPhotoBytes
	}
	return &State{maxPhotoBytes: maxPhotoBytes, errors: map[string]string{}}
}

// SetField stores a raw value. Unknown names are ignored.
func (s *State) SetField(name, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case FieldName:
		s.name = raw
	case FieldTenthMarks:
		s.tenthMarks = raw
	case FieldTwelfthMarks:
		s.twelfthMarks = raw
	}
}

// Field returns the raw value of a text field.
func (s *State) Field(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch name {
	case FieldName:
		return s.name
	case FieldTenthMarks:
		return s.tenthMarks
	case FieldTwelfthMarks:
		return s.twelfthMarks
	}
	return ""
}

// SetPhoto replaces the photo, or clears it when p is nil. Any load still in
// flight is superseded.
func (s *State) SetPhoto(p *models.Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photoGen++
	s.photo = p
}

// Reset empties the form. Loads still in flight are superseded.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name, s.tenthMarks, s.twelfthMarks = "", "", ""
	s.photo = nil
	s.errors = map[string]string{}
	s.photoGen++
}

func (s *State) Photo() *models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photo
}

// Errors returns a copy of the error map from the last Validate call.
func (s *State) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Validate recomputes the error map from the current values and reports
// whether it is empty. The previous map is replaced, not merged.
func (s *State) Validate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = s.check()
	return len(s.errors) == 0
}

func (s *State) check() map[string]string {
	errs := map[string]string{}

	if strings.TrimSpace(s.name) == "" {
		errs[FieldName] = "Name is required"
	}
	if msg := checkMarks(s.tenthMarks, "10th marks are required"); msg != "" {
		errs[FieldTenthMarks] = msg
	}
	if msg := checkMarks(s.twelfthMarks, "12th marks are required"); msg != "" {
		errs[FieldTwelfthMarks] = msg
	}
	if s.photo == nil {
		errs[FieldPhoto] = "Photo is required"
	}
	return errs
}

func checkMarks(raw, required string) string {
	if strings.TrimSpace(raw) == "" {
		return required
	}
	if _, ok := parseMarks(raw); !ok {
		return "Marks should be between 0 and 100"
	}
	return ""
}

func parseMarks(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// TrySubmit validates and, on success, returns a Submission built from the
// current values. Raw values are left as they are either way.
func (s *State) TrySubmit() (models.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors = s.check()
	if len(s.errors) != 0 {
		return models.Submission{}, false
	}

	tenth, _ := parseMarks(s.tenthMarks)
	twelfth, _ := parseMarks(s.twelfthMarks)
	return models.Submission{
		Name:         strings.TrimSpace(s.name),
		TenthMarks:   tenth,
		TwelfthMarks: twelfth,
		Photo:        s.photo,
	}, true
}

// Snapshot is the serialisable form of State.
type Snapshot struct {
	Name         string            `json:"name"`
	TenthMarks   string            `json:"tenth_marks"`
	TwelfthMarks string            `json:"twelfth_marks"`
	Photo        *models.Photo     `json:"photo,omitempty"`
	Errors       map[string]string `json:"errors,omitempty"`

	// PhotoGen is the latest photo selection ticket. It survives restores so
	// loads running in other requests can still be told apart.
	PhotoGen uint64 `json:"photo_gen,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	return Snapshot{
		Name:         s.name,
		TenthMarks:   s.tenthMarks,
		TwelfthMarks: s.twelfthMarks,
		Photo:        s.photo,
		Errors:       errs,
		PhotoGen:     s.photoGen,
	}
}

// Restore builds a State from a snapshot.
func Restore(snap Snapshot, maxPhotoBytes int64) *State {
	s := New(maxPhotoBytes)
	s.name = snap.Name
	s.tenthMarks = snap.TenthMarks
	s.twelfthMarks = snap.TwelfthMarks
	s.photo = snap.Photo
	s.photoGen = snap.PhotoGen
	for k, v := range snap.Errors {
		s.errors[k] = v
	}
	return s
}
