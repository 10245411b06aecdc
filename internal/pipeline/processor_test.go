package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilerojas/orden-compra-app/internal/entity"
	"github.com/gilerojas/orden-compra-app/internal/extract"
	"github.com/gilerojas/orden-compra-app/internal/notify"
	"github.com/gilerojas/orden-compra-app/internal/pipeline"
	"github.com/gilerojas/orden-compra-app/internal/render"
	"github.com/gilerojas/orden-compra-app/internal/store"
)

// fakeExtractor replays fixed page text instead of reading a real PDF; the
// rest of the pipeline runs for real.
type fakeExtractor struct {
	doc extract.TextResult
	err error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (extract.TextResult, error) {
	return f.doc, f.err
}

type appendCall struct {
	rec *entity.OrderRecord
	fp  string
}

type fakeStore struct {
	existing  *store.StoredOrder
	lookupErr error
	appendErr error
	appends   []appendCall
}

func (f *fakeStore) Lookup(_ context.Context, _ string) (*store.StoredOrder, error) {
	return f.existing, f.lookupErr
}

func (f *fakeStore) Append(_ context.Context, rec *entity.OrderRecord, fp string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, appendCall{rec: rec, fp: fp})
	return nil
}

type fakeNotifier struct {
	err  error
	sent []notify.Message
}

func (f *fakeNotifier) Send(_ context.Context, _ []byte, msg notify.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func orderDoc() extract.TextResult {
	return extract.TextResult{Pages: []extract.PageText{{Number: 1, Rows: []string{
		"ORDEN DE COMPRA",
		"No. Orden: OC-2024-0158 Fecha: 15/03/2024",
		"Solicitado a:",
		"QUIMICA INDUSTRIAL DEL CARIBE SRL SOLUCIONES QUIMICAS MG SRL",
		"Itm Descripcion Cantidad Precio Importe",
		"1 Acido citrico anhidro 25kg 10.00 12.50 125.00",
		"2 Hidroxido de sodio escamas 2.00 37.75 75.50",
		"3 Envase plastico 5gal 9.00 5.00 45.00",
		"SUB TOTAL: 245.50",
		"Impuesto: 0.00",
		"T O T A L : 245.50",
	}}}}
}

func newProcessor(st store.Store, n notify.Notifier) *pipeline.Processor {
	return pipeline.NewProcessor(nil, &fakeExtractor{doc: orderDoc()}, extract.NewParser(nil), st, n, render.Options{})
}

func TestProcessNewOrder(t *testing.T) {
	st := &fakeStore{}
	nt := &fakeNotifier{}
	proc := newProcessor(st, nt)

	res, err := proc.Process(context.Background(), []byte("raw"))
	require.NoError(t, err)

	assert.Equal(t, store.OutcomeNew, res.Outcome)
	assert.Equal(t, "OC-2024-0158", res.Record.OrderNumber)
	assert.Len(t, res.Fingerprint, 16)
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF-")), "result carries the rendered document")
	assert.NotEmpty(t, res.RequestID)
	assert.NoError(t, res.NotifyErr)

	require.Len(t, st.appends, 1)
	assert.Equal(t, res.Fingerprint, st.appends[0].fp)

	require.Len(t, nt.sent, 1)
	assert.Equal(t, "OC-2024-0158", nt.sent[0].OrderNumber)
	assert.Equal(t, "245.50", nt.sent[0].Total.StringFixed(2))
}

func TestProcessDuplicate(t *testing.T) {
	// First pass learns the fingerprint of the fixture document.
	probe, err := newProcessor(&fakeStore{}, nil).Process(context.Background(), []byte("raw"))
	require.NoError(t, err)

	st := &fakeStore{existing: &store.StoredOrder{OrderNumber: "OC-2024-0158", Fingerprint: probe.Fingerprint}}
	nt := &fakeNotifier{}

	res, err := newProcessor(st, nt).Process(context.Background(), []byte("raw"))
	require.NoError(t, err)

	assert.Equal(t, store.OutcomeDuplicate, res.Outcome)
	assert.Empty(t, st.appends, "a duplicate is never re-registered")
	assert.Empty(t, nt.sent, "a duplicate is never re-announced")
	assert.True(t, bytes.HasPrefix(res.PDF, []byte("%PDF-")), "the standardized PDF is still produced")
}

func TestProcessModified(t *testing.T) {
	st := &fakeStore{existing: &store.StoredOrder{OrderNumber: "OC-2024-0158", Fingerprint: "0123456789abcdef"}}
	nt := &fakeNotifier{}

	res, err := newProcessor(st, nt).Process(context.Background(), []byte("raw"))
	require.NoError(t, err)

	assert.Equal(t, store.OutcomeModified, res.Outcome)
	assert.Empty(t, st.appends, "the registered version is never overwritten")
	assert.Empty(t, nt.sent)
}

func TestProcessNotifyFailureDoesNotRollBack(t *testing.T) {
	st := &fakeStore{}
	nt := &fakeNotifier{err: errors.New("gateway timeout")}

	res, err := newProcessor(st, nt).Process(context.Background(), []byte("raw"))
	require.NoError(t, err, "delivery is best effort")

	assert.Equal(t, store.OutcomeNew, res.Outcome)
	require.Len(t, st.appends, 1, "the order stays registered")
	require.Error(t, res.NotifyErr)
	assert.Contains(t, res.NotifyErr.Error(), "gateway timeout")
}

func TestProcessWithoutNotifier(t *testing.T) {
	st := &fakeStore{}

	res, err := newProcessor(st, nil).Process(context.Background(), []byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, store.OutcomeNew, res.Outcome)
	require.Len(t, st.appends, 1)
	assert.NoError(t, res.NotifyErr)
}

func TestProcessExtractFailure(t *testing.T) {
	proc := pipeline.NewProcessor(nil,
		&fakeExtractor{err: &extract.Error{Field: extract.FieldDocument, Reason: "unreadable pdf"}},
		extract.NewParser(nil), &fakeStore{}, nil, render.Options{})

	_, err := proc.Process(context.Background(), []byte("raw"))
	var exErr *extract.Error
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, extract.FieldDocument, exErr.Field)
}

func TestProcessLookupFailure(t *testing.T) {
	st := &fakeStore{lookupErr: &store.Error{Op: "lookup", Err: errors.New("workbook locked")}}

	_, err := newProcessor(st, nil).Process(context.Background(), []byte("raw"))
	var stErr *store.Error
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, "lookup", stErr.Op)
}

func TestProcessAppendFailure(t *testing.T) {
	st := &fakeStore{appendErr: &store.Error{Op: "append", Err: errors.New("disk full")}}

	_, err := newProcessor(st, nil).Process(context.Background(), []byte("raw"))
	var stErr *store.Error
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, "append", stErr.Op)
}
