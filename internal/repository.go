package internal

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordDraft is user input for a new record. Exactly one of AnchorDate and
// DueDate selects how the next due date is obtained.
type RecordDraft struct {
	Name         string
	Cost         string
	Currency     string
	BillingCycle string
	AnchorDate   string // due date = anchor + cycle length
	DueDate      string // due date given directly
	URL          string
}

// RecordChanges lists the fields an edit touches; nil fields keep their value.
type RecordChanges struct {
	Name         *string
	Cost         *string
	Currency     *string
	BillingCycle *string
	AnchorDate   *string
	DueDate      *string
	URL          *string
}

// IsEmpty reports whether no field is set.
func (c RecordChanges) IsEmpty() bool {
	return c.Name == nil && c.Cost == nil && c.Currency == nil && c.BillingCycle == nil &&
		c.AnchorDate == nil && c.DueDate == nil && c.URL == nil
}

func (c RecordChanges) touchesSchedule() bool {
	return c.BillingCycle != nil || c.AnchorDate != nil || c.DueDate != nil
}

// Repository is the ordered record set of one host document.
// It is not safe for concurrent use; the document is last-writer-wins.
type Repository struct {
	path     string
	records  []Record
	logger   *zap.Logger
	notifier Notifier
	now      func() time.Time
}

type RepositoryOption func(*Repository)

func WithLogger(l *zap.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = l }
}

// WithNotifier sends a summary after every successful Persist.
func WithNotifier(n Notifier) RepositoryOption {
	return func(r *Repository) { r.notifier = n }
}

func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) { r.now = now }
}

// OpenRepository reads the host document at path and loads its records.
func OpenRepository(path string, opts ...RepositoryOption) (*Repository, error) {
	r := &Repository{path: path, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = loggerOrNop(r.logger)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading document: %v", ErrIO, err)
	}

	records, problems, err := LoadRecords(string(data))
	if err != nil {
		return nil, err
	}
	for _, p := range problems {
		r.logger.Warn("record kept unmigrated", zap.String("document", path), zap.Error(p))
	}
	r.records = records
	return r, nil
}

// LoadRecords extracts and normalizes the records of doc in document order.
// Records that fail to normalize are kept verbatim; their errors are
// returned alongside.
func LoadRecords(doc string) ([]Record, []error, error) {
	raws, err := LoadDocument(doc)
	if err != nil {
		return nil, nil, err
	}
	records := make([]Record, 0, len(raws))
	var problems []error
	for i, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			problems = append(problems, fmt.Errorf("record %d: %w", i+1, err))
		}
		records = append(records, rec)
	}
	return records, problems, nil
}

// Path returns the host document path.
func (r *Repository) Path() string {
	return r.path
}

// Len returns the number of records.
func (r *Repository) Len() int {
	return len(r.records)
}

// Records returns a copy of the records in document order.
func (r *Repository) Records() []Record {
	out := make([]Record, len(r.records))
	for i, rec := range r.records {
		out[i] = cloneRecord(rec)
	}
	return out
}

// Get returns the record at the 0-based index.
func (r *Repository) Get(index int) (Record, error) {
	if err := r.checkIndex(index); err != nil {
		return Record{}, err
	}
	return cloneRecord(r.records[index]), nil
}

// Add validates d and appends the resulting canonical record.
func (r *Repository) Add(d RecordDraft) (Record, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return Record{}, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	cost, err := parseCost(d.Cost)
	if err != nil {
		return Record{}, err
	}
	curr, err := ParseCurrency(d.Currency)
	if err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(d.BillingCycle) == "" {
		return Record{}, fmt.Errorf("%w: %w: a billing cycle is required", ErrValidation, ErrInvalidCycle)
	}
	cycle, err := ParseBillingCycle(d.BillingCycle)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	due, err := resolveDueDate(cycle, optional(d.AnchorDate), optional(d.DueDate))
	if err != nil {
		return Record{}, err
	}
	if due == "" {
		return Record{}, fmt.Errorf("%w: %w: a start date or a due date is required", ErrValidation, ErrInvalidDate)
	}

	rec := Record{
		Name:         name,
		Cost:         cost,
		Currency:     curr,
		BillingCycle: cycle,
		NextDueDate:  due,
		URL:          strings.TrimSpace(d.URL),
	}
	r.records = append(r.records, rec)
	return cloneRecord(rec), nil
}

// Edit applies c to the record at the 0-based index. Either every change is
// valid and applied, or none is.
func (r *Repository) Edit(index int, c RecordChanges) (Record, error) {
	if err := r.checkIndex(index); err != nil {
		return Record{}, err
	}
	rec := cloneRecord(r.records[index])
	if rec.IsUnreadable() {
		return Record{}, fmt.Errorf("%w: record %d could not be read and must be fixed in the document", ErrValidation, index+1)
	}

	if c.Name != nil {
		name := strings.TrimSpace(*c.Name)
		if name == "" {
			return Record{}, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		rec.Name = name
	}
	if c.Cost != nil {
		cost, err := parseCost(*c.Cost)
		if err != nil {
			return Record{}, err
		}
		rec.Cost = cost
	}
	if c.Currency != nil {
		curr, err := ParseCurrency(*c.Currency)
		if err != nil {
			return Record{}, err
		}
		rec.Currency = curr
	}
	if c.URL != nil {
		rec.URL = strings.TrimSpace(*c.URL)
	}

	if c.touchesSchedule() {
		cycle := rec.BillingCycle
		if c.BillingCycle != nil {
			parsed, err := ParseBillingCycle(*c.BillingCycle)
			if err != nil {
				return Record{}, fmt.Errorf("%w: %w", ErrValidation, err)
			}
			cycle = parsed
		}
		due, err := resolveDueDate(cycle, c.AnchorDate, c.DueDate)
		if err != nil {
			return Record{}, err
		}
		rec.BillingCycle = cycle
		if due != "" {
			rec.NextDueDate = due
			rec.dueFromLegacy = false
		} else if rec.NextDueDate != "" {
			if _, err := ValidateDueDate(rec.NextDueDate); err != nil {
				return Record{}, fmt.Errorf("%w: record %d keeps its stored due date: %w", ErrValidation, index+1, err)
			}
		}
		rec = Finalize(rec)
		if !rec.IsCanonical() {
			return Record{}, fmt.Errorf("%w: record %d needs both a valid billing cycle and a due date", ErrValidation, index+1)
		}
	}

	r.records[index] = rec
	return cloneRecord(rec), nil
}

// Delete removes and returns the record at the 0-based index.
func (r *Repository) Delete(index int) (Record, error) {
	if err := r.checkIndex(index); err != nil {
		return Record{}, err
	}
	removed := r.records[index]
	r.records = append(r.records[:index:index], r.records[index+1:]...)
	return removed, nil
}

// Persist writes the records back into the host document. The document is
// re-read so that edits made outside the managed span since loading are kept.
// On failure the in-memory records are unchanged and Persist can be retried.
func (r *Repository) Persist(ctx context.Context) error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("%w: reading document: %v", ErrIO, err)
	}

	finalized := make([]Record, len(r.records))
	for i, rec := range r.records {
		finalized[i] = Finalize(rec)
	}

	updated, err := SaveDocument(string(data), finalized)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(r.path, strings.NewReader(updated)); err != nil {
		return fmt.Errorf("%w: writing document: %v", ErrIO, err)
	}
	r.records = finalized

	r.logger.Debug("document saved", zap.String("document", r.path), zap.Int("records", len(finalized)))
	NotifyBestEffort(ctx, r.notifier, r.logger, r.summaryMessage())
	return nil
}

func (r *Repository) summaryMessage() string {
	return fmt.Sprintf("VPS records updated\nUpdated at: %s\nTracking: %d servers",
		r.now().Format("2006-01-02 15:04:05"), len(r.records))
}

func (r *Repository) checkIndex(index int) error {
	if index < 0 || index >= len(r.records) {
		return fmt.Errorf("%w: %d (have %d records)", ErrIndex, index+1, len(r.records))
	}
	return nil
}

// resolveDueDate turns the chosen input mode into a due date string.
// It returns "" when neither mode is used.
func resolveDueDate(cycle BillingCycle, anchor, due *string) (string, error) {
	if anchor != nil && due != nil {
		return "", fmt.Errorf("%w: give either a start date or a due date, not both", ErrValidation)
	}
	switch {
	case anchor != nil:
		start, err := ValidateDueDate(*anchor)
		if err != nil {
			return "", fmt.Errorf("%w: start date: %w", ErrValidation, err)
		}
		if !cycle.Valid() {
			return "", fmt.Errorf("%w: %w: a billing cycle is required to compute the due date", ErrValidation, ErrInvalidCycle)
		}
		next, err := ComputeDueDate(cycle, start)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return next.Format(DateLayout), nil
	case due != nil:
		t, err := ValidateDueDate(*due)
		if err != nil {
			return "", fmt.Errorf("%w: due date: %w", ErrValidation, err)
		}
		return t.Format(DateLayout), nil
	}
	return "", nil
}

func parseCost(text string) (decimal.Decimal, error) {
	cost, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: cost %q is not a number", ErrValidation, text)
	}
	if cost.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: cost %s must not be negative", ErrValidation, cost)
	}
	return cost, nil
}

// optional maps an empty draft field to "not given".
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
