package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contratos.app/internal/contract"
)

func edit(t *testing.T, w *Wizard, fn func(d *contract.Draft)) {
	t.Helper()
	require.NoError(t, w.Update(func(d *contract.Draft) error {
		fn(d)
		return nil
	}))
}

func TestNextFromPartiesRequiresBothNames(t *testing.T) {
	cases := []struct {
		contractor, contracted string
		ok                     bool
	}{
		{"", "", false},
		{"A", "", false},
		{"", "B", false},
		{"A", "B", true},
	}
	for _, tc := range cases {
		w := New()
		edit(t, w, func(d *contract.Draft) { d.ContractorName, d.ContractedName = tc.contractor, tc.contracted })
		st, err := w.Next()
		if tc.ok {
			require.NoError(t, err)
			assert.Equal(t, StepDetails, st.Step)
		} else {
			assert.ErrorIs(t, err, ErrIncomplete)
			assert.Equal(t, StepParties, st.Step)
			assert.False(t, st.CanProceed)
		}
	}
}

func TestNextFromDetailsRequiresTypeObjectValue(t *testing.T) {
	full := contract.Draft{ContractorName: "A", ContractedName: "B", ContractType: "Venda", ContractObject: "Carro", Value: "R$ 1"}
	blanks := []func(d *contract.Draft){
		func(d *contract.Draft) { d.ContractType = "" },
		func(d *contract.Draft) { d.ContractObject = "" },
		func(d *contract.Draft) { d.Value = "" },
	}
	for i, blank := range blanks {
		w := New()
		edit(t, w, func(d *contract.Draft) { *d = full; blank(d) })
		_, err := w.Next()
		require.NoError(t, err)
		st, err := w.Next()
		assert.ErrorIsf(t, err, ErrIncomplete, "case %d", i)
		assert.Equal(t, StepDetails, st.Step)
	}

	w := New()
	edit(t, w, func(d *contract.Draft) { *d = full })
	for _, want := range []Step{StepDetails, StepClauses, StepReview, StepReview} {
		st, err := w.Next()
		require.NoError(t, err)
		assert.Equal(t, want, st.Step)
	}
}

func back(t *testing.T, w *Wizard) Step {
	t.Helper()
	st, err := w.Back()
	require.NoError(t, err)
	return st.Step
}

func TestBackClampsAtFirstStep(t *testing.T) {
	w := New()
	assert.Equal(t, StepParties, back(t, w))

	edit(t, w, func(d *contract.Draft) {
		*d = contract.Draft{ContractorName: "A", ContractedName: "B", ContractType: "Venda", ContractObject: "x", Value: "1"}
	})
	for i := 0; i < 3; i++ {
		_, err := w.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, StepClauses, back(t, w))
	assert.Equal(t, StepDetails, back(t, w))
	assert.Equal(t, StepParties, back(t, w))
	assert.Equal(t, StepParties, back(t, w))
}

func TestUpdateRejectsUnknownTypeAndKeepsDraft(t *testing.T) {
	w := New()
	edit(t, w, func(d *contract.Draft) { d.ContractorName = "A" })

	err := w.Update(func(d *contract.Draft) error {
		d.ContractorName = "changed"
		d.ContractType = "Escambo"
		return nil
	})
	assert.ErrorIs(t, err, contract.ErrUnknownType)
	assert.Equal(t, "A", w.State().Draft.ContractorName)
}

func TestStatePreviewTracksEditsOnAnyStep(t *testing.T) {
	w := New()
	edit(t, w, func(d *contract.Draft) { d.Confidentiality = true })
	assert.Contains(t, w.State().Preview, "CLÁUSULA DE CONFIDENCIALIDADE: Incluída")
}

type fakeSaver struct {
	err  error
	recs []contract.NewRecord
}

func (f *fakeSaver) Insert(ctx context.Context, rec contract.NewRecord) (contract.Record, error) {
	if f.err != nil {
		return contract.Record{}, f.err
	}
	f.recs = append(f.recs, rec)
	return contract.Record{ID: "r1", OwnerID: rec.OwnerID, Title: rec.Title, Payload: rec.Payload}, nil
}

func readyWizard(t *testing.T) *Wizard {
	t.Helper()
	w := New()
	edit(t, w, func(d *contract.Draft) {
		*d = contract.Draft{ContractorName: "A", ContractedName: "B", ContractType: "Freelance", ContractObject: "Logo", Value: "R$100"}
	})
	for i := 0; i < 3; i++ {
		_, err := w.Next()
		require.NoError(t, err)
	}
	return w
}

func TestFinishPackagesDraft(t *testing.T) {
	w := readyWizard(t)
	saver := &fakeSaver{}

	rec, err := w.Finish(context.Background(), "owner-1", saver)
	require.NoError(t, err)
	assert.Equal(t, "Freelance - A e B", rec.Title)
	require.Len(t, saver.recs, 1)

	d, err := contract.DecodeDraft(saver.recs[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, w.State().Draft, d)
	assert.Nil(t, saver.recs[0].ArtifactRef)
}

func TestFinishFailureRetainsDraft(t *testing.T) {
	w := readyWizard(t)
	before := w.State()

	_, err := w.Finish(context.Background(), "owner-1", &fakeSaver{err: errors.New("db down")})
	require.Error(t, err)
	assert.Equal(t, before, w.State())

	_, err = w.Finish(context.Background(), "owner-1", &fakeSaver{})
	assert.NoError(t, err, "retry succeeds")
}

func TestFinishClosesWizard(t *testing.T) {
	w := readyWizard(t)
	saver := &fakeSaver{}
	ctx := context.Background()

	_, err := w.Finish(ctx, "owner-1", saver)
	require.NoError(t, err)

	_, err = w.Finish(ctx, "owner-1", saver)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Len(t, saver.recs, 1, "draft saved once")

	_, err = w.Next()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = w.Back()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Update(func(d *contract.Draft) error { return nil }), ErrClosed)
	assert.Equal(t, StepReview, w.State().Step)
}

func TestConcurrentFinishSavesOnce(t *testing.T) {
	w := readyWizard(t)
	saver := &fakeSaver{}
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.Finish(ctx, "owner-1", saver)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrClosed)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, saver.recs, 1)
}

func TestFinishGuards(t *testing.T) {
	_, err := New().Finish(context.Background(), "o", &fakeSaver{})
	assert.ErrorIs(t, err, ErrNotAtReview)

	w := readyWizard(t)
	edit(t, w, func(d *contract.Draft) { d.ContractedName = "" })
	_, err = w.Finish(context.Background(), "o", &fakeSaver{})
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestRegistryOpenReplacesAndCloseIsScoped(t *testing.T) {
	r := NewRegistry()
	first := r.Open("s1")
	second := r.Open("s1")
	got, ok := r.Get("s1")
	require.True(t, ok)
	assert.Same(t, second, got)

	r.Close("s1", first)
	_, ok = r.Get("s1")
	assert.True(t, ok, "closing a stale wizard keeps the current one")

	r.Close("s1", nil)
	assert.Zero(t, r.Len())
}
