package customer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/custdesk/backend/internal/domain/customer"
	"github.com/custdesk/backend/internal/infrastructure/scheduler"
	"github.com/custdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Mode tells whether the draft creates a new record or edits a stored one
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// StalePolicy decides what happens to enrichment results that resolve after
// the draft has moved on
type StalePolicy int

const (
	// StaleApply never cancels outstanding calls; results land on whatever
	// draft exists when they resolve.
	StaleApply StalePolicy = iota
	// StaleDiscard cancels outstanding calls when the draft is reset and drops
	// results whose draft or triggering field has changed since the call.
	StaleDiscard
)

// String returns the config name of the policy
func (p StalePolicy) String() string {
	if p == StaleDiscard {
		return "discard"
	}
	return "apply"
}

const (
	taxIDTaskKey          = "tax_id"
	postcodeTaskKeyPrefix = "postcode:"
)

// ErrFormClosed is returned by operations on a closed form
var ErrFormClosed = errors.New("form is closed")

// FormOptions configures a FormController
type FormOptions struct {
	DebounceWindow time.Duration
	StalePolicy    StalePolicy
	Metrics        *telemetry.Metrics
	Logger         *zap.Logger
}

// FormController owns one working draft and drives it through create or
// edit, filling in name and address details from the enrichment services
type FormController struct {
	store     customer.Store
	verifier  customer.TaxIDVerifier
	lookup    customer.PostcodeLookup
	debouncer *scheduler.Debouncer
	policy    StalePolicy
	metrics   *telemetry.Metrics
	logger    *zap.Logger

	mu         sync.Mutex
	selected   *customer.Record
	draft      customer.Record
	generation uint64
	closed     bool
}

// NewFormController creates a form in create mode with a blank draft
func NewFormController(store customer.Store, verifier customer.TaxIDVerifier, lookup customer.PostcodeLookup, opts FormOptions) *FormController {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormController{
		store:     store,
		verifier:  verifier,
		lookup:    lookup,
		debouncer: scheduler.NewDebouncer(opts.DebounceWindow, logger),
		policy:    opts.StalePolicy,
		metrics:   opts.Metrics,
		logger:    logger,
		draft:     customer.NewRecord(),
	}
}

// Select switches the externally supplied record. nil means create mode.
// A selection different from the current one resets the draft and discards
// unsaved edits; re-selecting the current one keeps the draft as it is.
func (c *FormController) Select(record *customer.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrFormClosed
	}
	if sameSelection(c.selected, record) {
		return nil
	}

	if record == nil {
		c.selected = nil
	} else {
		sel := record.Clone()
		c.selected = &sel
	}
	c.resetLocked()
	return nil
}

func sameSelection(current, next *customer.Record) bool {
	if current == nil || next == nil {
		return current == nil && next == nil
	}
	return reflect.DeepEqual(*current, *next)
}

// resetLocked must be called with c.mu held
func (c *FormController) resetLocked() {
	c.generation++
	if c.selected != nil {
		c.draft = c.selected.Clone()
	} else {
		c.draft = customer.NewRecord()
	}
	if c.policy == StaleDiscard {
		c.debouncer.CancelAll()
	}
	c.logger.Debug("draft reset",
		zap.Uint64("generation", c.generation),
		zap.String("mode", string(c.modeLocked())),
	)
}

func (c *FormController) modeLocked() Mode {
	if c.selected != nil {
		return ModeEdit
	}
	return ModeCreate
}

// SetField updates a top-level field of the draft. A tax ID reaching its
// full length schedules PAN verification.
func (c *FormController) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrFormClosed
	}
	if err := c.draft.SetField(name, value); err != nil {
		return err
	}

	if name == customer.FieldTaxID && customer.TaxIDComplete(value) {
		gen := c.generation
		if err := c.debouncer.Schedule(taxIDTaskKey, func(ctx context.Context) {
			c.verifyTaxID(ctx, value, gen)
		}); err != nil {
			c.logger.Warn("failed to schedule PAN verification", zap.Error(err))
		}
	} else if name == customer.FieldTaxID && c.policy == StaleDiscard {
		c.debouncer.Cancel(taxIDTaskKey)
	}
	return nil
}

// SetAddressField updates a field of the address at index. A postcode
// reaching its full length schedules a lookup for that address.
func (c *FormController) SetAddressField(index int, name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrFormClosed
	}
	if err := c.draft.SetAddressField(index, name, value); err != nil {
		return err
	}

	key := postcodeTaskKeyPrefix + strconv.Itoa(index)
	if name == customer.FieldPostcode && customer.PostcodeComplete(value) {
		gen := c.generation
		if err := c.debouncer.Schedule(key, func(ctx context.Context) {
			c.lookupPostcode(ctx, index, value, gen)
		}); err != nil {
			c.logger.Warn("failed to schedule postcode lookup", zap.Error(err))
		}
	} else if name == customer.FieldPostcode && c.policy == StaleDiscard {
		c.debouncer.Cancel(key)
	}
	return nil
}

// AddAddress appends a blank address. It reports false, and changes
// nothing, when the draft already holds the maximum.
func (c *FormController) AddAddress() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrFormClosed
	}
	return c.draft.AddAddress(), nil
}

// Submit validates the draft and saves it: Edit in edit mode, Add in create
// mode. Afterwards the selection is cleared, as Select(nil) would, whether
// or not enrichment calls are still outstanding. A Select or Close that
// lands while the store call runs wins over the clear.
func (c *FormController) Submit(ctx context.Context) (result *SubmitResult, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrFormClosed
	}
	draft := c.draft.Clone()
	mode := c.modeLocked()
	generation := c.generation
	c.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "customer.form.submit",
		telemetry.WithAttribute(telemetry.SpanAttrMode, string(mode)),
		telemetry.WithAttribute(telemetry.SpanAttrGeneration, generation),
		telemetry.WithAttribute(telemetry.SpanAttrTaxID, draft.TaxID),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	result = &SubmitResult{Mode: mode, TaxID: draft.TaxID, Saved: true}
	switch mode {
	case ModeEdit:
		found, err := c.store.Edit(ctx, draft)
		if err != nil {
			return nil, fmt.Errorf("failed to edit customer: %w", err)
		}
		result.Saved = found
		telemetry.SetAttributes(span, "customer.saved", found)
		if !found {
			c.logger.Info("edit target not in store, nothing changed", zap.String("tax_id", draft.TaxID))
		}
	default:
		if err := c.store.Add(ctx, draft); err != nil {
			return nil, fmt.Errorf("failed to add customer: %w", err)
		}
	}

	c.clearSelectionAfterSave(generation)
	return result, nil
}

// clearSelectionAfterSave drops the selection unless the draft was reset,
// or the form closed, after the snapshot taken at generation
func (c *FormController) clearSelectionAfterSave(generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.generation != generation || c.selected == nil {
		return
	}
	c.selected = nil
	c.resetLocked()
}

// Draft returns a snapshot of the form state
func (c *FormController) Draft() DraftSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := DraftSnapshot{
		Mode:       c.modeLocked(),
		Generation: c.generation,
		Record:     c.draft.Clone(),
		Pending:    c.debouncer.Pending(),
	}
	if c.selected != nil {
		snap.SelectedTaxID = c.selected.TaxID
	}
	return snap
}

// StalePolicy returns the policy the form runs with
func (c *FormController) StalePolicy() StalePolicy {
	return c.policy
}

// Wait blocks until every scheduled enrichment call has finished or been dropped
func (c *FormController) Wait() {
	c.debouncer.Wait()
}

// Close unmounts the form. Pending calls are dropped, running ones are
// cancelled, and nothing applies to the draft afterwards.
func (c *FormController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.debouncer.Stop()
}

func (c *FormController) verifyTaxID(ctx context.Context, taxID string, gen uint64) {
	start := time.Now()
	log := c.logger.With(zap.String("tax_id", taxID))

	result, err := c.verifier.VerifyTaxID(ctx, taxID)
	if err != nil {
		c.observe(telemetry.EnrichmentPAN, outcomeForError(ctx), start)
		log.Warn("PAN verification failed", zap.Error(err))
		return
	}
	if !result.Valid {
		c.observe(telemetry.EnrichmentPAN, telemetry.OutcomeRejected, start)
		log.Debug("PAN not valid, draft unchanged")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || (c.policy == StaleDiscard && (c.generation != gen || c.draft.TaxID != taxID)) {
		c.observe(telemetry.EnrichmentPAN, telemetry.OutcomeDiscarded, start)
		log.Debug("discarding stale PAN verification", zap.Uint64("generation", gen))
		return
	}
	if err := c.draft.SetField(customer.FieldFullName, result.FullName); err != nil {
		c.observe(telemetry.EnrichmentPAN, telemetry.OutcomeFailed, start)
		log.Warn("verified name does not fit the draft", zap.Error(err))
		return
	}
	c.observe(telemetry.EnrichmentPAN, telemetry.OutcomeApplied, start)
}

func (c *FormController) lookupPostcode(ctx context.Context, index int, postcode string, gen uint64) {
	start := time.Now()
	log := c.logger.With(zap.String("postcode", postcode), zap.Int("address_index", index))

	details, err := c.lookup.LookupPostcode(ctx, postcode)
	if err != nil {
		c.observe(telemetry.EnrichmentPostcode, outcomeForError(ctx), start)
		log.Warn("postcode lookup failed", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || index >= len(c.draft.Addresses) {
		c.observe(telemetry.EnrichmentPostcode, telemetry.OutcomeDiscarded, start)
		return
	}
	if c.policy == StaleDiscard && (c.generation != gen || c.draft.Addresses[index].Postcode != postcode) {
		c.observe(telemetry.EnrichmentPostcode, telemetry.OutcomeDiscarded, start)
		log.Debug("discarding stale postcode lookup", zap.Uint64("generation", gen))
		return
	}

	addr := &c.draft.Addresses[index]
	addr.City = details.City
	addr.State = details.State
	c.observe(telemetry.EnrichmentPostcode, telemetry.OutcomeApplied, start)
}

func (c *FormController) observe(kind, outcome string, start time.Time) {
	c.metrics.ObserveEnrichment(kind, outcome, time.Since(start))
}

func outcomeForError(ctx context.Context) string {
	if ctx.Err() != nil {
		return telemetry.OutcomeDiscarded
	}
	return telemetry.OutcomeFailed
}
