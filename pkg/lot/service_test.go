package lot_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/lotflow/lotflow/pkg/lot"
	"github.com/lotflow/lotflow/pkg/storage"
	"github.com/lotflow/lotflow/pkg/storage/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *lot.Service {
	return lot.NewService(inmemory.NewStorage())
}

func createLot(t *testing.T, s *lot.Service, productId string) lot.Lot {
	t.Helper()
	created, err := s.CreateLot(context.Background(), productId, productId, "instance-1", 100, "kg", time.Time{}, nil)
	require.NoError(t, err)
	return created
}

func lotNumbers(lots []lot.Lot) []string {
	numbers := make([]string, 0, len(lots))
	for _, l := range lots {
		numbers = append(numbers, l.LotNumber)
	}
	return numbers
}

func TestCreateLot(t *testing.T) {
	s := newService()

	created := createLot(t, s, "FLOUR")

	assert.Equal(t, lot.StatusInProcess, created.Status)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}-FLOUR-\d{3}$`), created.LotNumber)
	assert.False(t, created.ManufacturingDate.IsZero())
	assert.Empty(t, created.TraceabilityRecords)

	byId := s.Lot(context.Background(), created.Id)
	require.NotNil(t, byId)
	byNumber := s.LotByNumber(context.Background(), created.LotNumber)
	require.NotNil(t, byNumber)
	assert.Equal(t, created.Id, byNumber.Id)
}

func TestAddRecord(t *testing.T) {
	ctx := context.Background()
	s := newService()
	created := createLot(t, s, "DOUGH")

	record, err := s.AddRecord(ctx, created.Id, lot.RecordSpec{
		ActivityId:   "mixing",
		ActivityName: "Mixing",
		EventType:    lot.EventProcessed,
		Location:     "line-2",
		Operator:     "operator-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, record.Id)
	assert.Equal(t, created.Id, record.LotId)
	assert.False(t, record.Timestamp.IsZero())

	stored := s.Lot(ctx, created.Id)
	require.Len(t, stored.TraceabilityRecords, 1)
	assert.Equal(t, record.Id, stored.TraceabilityRecords[0].Id)

	_, err = s.AddRecord(ctx, "missing", lot.RecordSpec{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLinkParentLot(t *testing.T) {
	ctx := context.Background()
	s := newService()
	parent := createLot(t, s, "FLOUR")
	child := createLot(t, s, "DOUGH")

	assert.True(t, s.LinkParentLot(ctx, child.Id, parent.LotNumber))
	// linking twice leaves a single edge
	assert.True(t, s.LinkParentLot(ctx, child.Id, parent.LotNumber))

	storedChild := s.Lot(ctx, child.Id)
	assert.Equal(t, []string{parent.LotNumber}, storedChild.ParentLots)
	storedParent := s.Lot(ctx, parent.Id)
	assert.Equal(t, []string{child.LotNumber}, storedParent.ChildLots)

	// a parent number with no lot leaves a one-sided edge
	assert.True(t, s.LinkParentLot(ctx, child.Id, "20240101-EXT-001"))
	storedChild = s.Lot(ctx, child.Id)
	assert.Contains(t, storedChild.ParentLots, "20240101-EXT-001")

	assert.False(t, s.LinkParentLot(ctx, "missing", parent.LotNumber))
}

// diamond: flour feeds dough and sponge, both feed the same bread lot
func buildDiamond(t *testing.T, s *lot.Service) (flour, dough, sponge, bread lot.Lot) {
	t.Helper()
	ctx := context.Background()
	flour = createLot(t, s, "FLOUR")
	dough = createLot(t, s, "DOUGH")
	sponge = createLot(t, s, "SPONGE")
	bread = createLot(t, s, "BREAD")

	require.True(t, s.LinkParentLot(ctx, dough.Id, flour.LotNumber))
	require.True(t, s.LinkParentLot(ctx, sponge.Id, flour.LotNumber))
	require.True(t, s.LinkParentLot(ctx, bread.Id, dough.LotNumber))
	require.True(t, s.LinkParentLot(ctx, bread.Id, sponge.LotNumber))
	return
}

func TestForwardTraceDeduplicatesDiamond(t *testing.T) {
	ctx := context.Background()
	s := newService()
	flour, dough, sponge, bread := buildDiamond(t, s)

	traced := s.ForwardTrace(ctx, flour.LotNumber)

	assert.Equal(t,
		[]string{flour.LotNumber, dough.LotNumber, bread.LotNumber, sponge.LotNumber},
		lotNumbers(traced))
}

func TestBackwardTrace(t *testing.T) {
	ctx := context.Background()
	s := newService()
	flour, dough, sponge, bread := buildDiamond(t, s)

	traced := s.BackwardTrace(ctx, bread.LotNumber)

	assert.Equal(t,
		[]string{bread.LotNumber, dough.LotNumber, flour.LotNumber, sponge.LotNumber},
		lotNumbers(traced))
}

func TestTraceOfUnknownLotIsEmpty(t *testing.T) {
	s := newService()

	assert.Empty(t, s.ForwardTrace(context.Background(), "missing"))
	assert.Empty(t, s.BackwardTrace(context.Background(), "missing"))
}

func TestTracePathExcludesCurrentLot(t *testing.T) {
	ctx := context.Background()
	s := newService()
	flour, dough, _, bread := buildDiamond(t, s)

	path := s.TracePathFor(ctx, dough.LotNumber)

	require.NotNil(t, path.Current)
	assert.Equal(t, dough.LotNumber, path.Current.LotNumber)
	assert.Equal(t, []string{flour.LotNumber}, lotNumbers(path.Backward))
	assert.Equal(t, []string{bread.LotNumber}, lotNumbers(path.Forward))

	missing := s.TracePathFor(ctx, "missing")
	assert.Nil(t, missing.Current)
	assert.Empty(t, missing.Backward)
	assert.Empty(t, missing.Forward)
}

func TestCyclicGenealogyTerminates(t *testing.T) {
	ctx := context.Background()
	s := newService()
	a := createLot(t, s, "A")
	b := createLot(t, s, "B")

	require.True(t, s.LinkParentLot(ctx, b.Id, a.LotNumber))
	require.True(t, s.LinkParentLot(ctx, a.Id, b.LotNumber))

	traced := s.ForwardTrace(ctx, a.LotNumber)
	assert.Equal(t, []string{a.LotNumber, b.LotNumber}, lotNumbers(traced))
}

func TestUpdateStatusRecordsChange(t *testing.T) {
	ctx := context.Background()
	s := newService()
	created := createLot(t, s, "BREAD")

	updated := s.UpdateStatus(ctx, created.Id, lot.StatusReleased, "QA approved")

	require.NotNil(t, updated)
	assert.Equal(t, lot.StatusReleased, updated.Status)
	require.Len(t, updated.TraceabilityRecords, 1)

	record := updated.TraceabilityRecords[0]
	assert.Equal(t, "STATUS_CHANGE", record.ActivityId)
	assert.Equal(t, lot.EventProcessed, record.EventType)
	assert.Equal(t, "SYSTEM", record.Operator)
	assert.Equal(t, "QA approved", record.Parameters["reason"])
	// previousStatus is captured after the switch and always equals
	// newStatus; pinned here so a change to the recorded shape is visible
	assert.Equal(t, lot.StatusReleased, record.Parameters["previousStatus"])
	assert.Equal(t, lot.StatusReleased, record.Parameters["newStatus"])

	assert.Nil(t, s.UpdateStatus(ctx, "missing", lot.StatusReleased, ""))
}

func TestRecallCascadesForwardOnly(t *testing.T) {
	ctx := context.Background()
	s := newService()

	// E is an ingredient of A; A has children B and C; B has child D
	e := createLot(t, s, "E")
	a := createLot(t, s, "A")
	b := createLot(t, s, "B")
	c := createLot(t, s, "C")
	d := createLot(t, s, "D")

	require.True(t, s.LinkParentLot(ctx, a.Id, e.LotNumber))
	require.True(t, s.LinkParentLot(ctx, b.Id, a.LotNumber))
	require.True(t, s.LinkParentLot(ctx, c.Id, a.LotNumber))
	require.True(t, s.LinkParentLot(ctx, d.Id, b.LotNumber))

	result := s.Recall(ctx, a.LotNumber, "glass fragments found")

	expected := []string{a.LotNumber, b.LotNumber, d.LotNumber, c.LotNumber}
	assert.Equal(t, expected, lotNumbers(result.Affected))
	assert.Equal(t, expected, lotNumbers(result.Recalled))

	for _, recalled := range result.Recalled {
		assert.Equal(t, lot.StatusRecalled, recalled.Status)
	}

	// the upstream ingredient is untouched
	ingredient := s.Lot(ctx, e.Id)
	assert.Equal(t, lot.StatusInProcess, ingredient.Status)
	assert.NotContains(t, lotNumbers(result.Affected), e.LotNumber)
}

func TestRecordMaterialUsageAndProductOutput(t *testing.T) {
	ctx := context.Background()
	s := newService()
	created := createLot(t, s, "DOUGH")

	usage, err := s.RecordMaterialUsage(ctx, created.Id, "mixing", "Mixing", []lot.MaterialUsage{
		{MaterialId: "FLOUR", MaterialName: "Wheat flour", LotNumber: "20240101-FLOUR-001", Quantity: 50, Unit: "kg"},
	}, "line-2", "operator-1")
	require.NoError(t, err)
	assert.Equal(t, lot.EventProcessed, usage.EventType)
	require.Len(t, usage.InputMaterials, 1)
	assert.Equal(t, "FLOUR", usage.InputMaterials[0].MaterialId)

	output, err := s.RecordProductOutput(ctx, created.Id, "dividing", "Dividing", []lot.ProductOutput{
		{ProductId: "BREAD", ProductName: "Sourdough loaf", LotNumber: "20240101-BREAD-001", Quantity: 120, Unit: "pcs"},
	}, "line-2", "operator-1")
	require.NoError(t, err)
	require.Len(t, output.OutputProducts, 1)

	stored := s.Lot(ctx, created.Id)
	assert.Len(t, stored.TraceabilityRecords, 2)
}

func TestLotStatistics(t *testing.T) {
	ctx := context.Background()
	s := newService()

	a := createLot(t, s, "A")
	b := createLot(t, s, "B")
	createLot(t, s, "C")

	s.UpdateStatus(ctx, a.Id, lot.StatusReleased, "")
	s.UpdateStatus(ctx, b.Id, lot.StatusQuarantine, "")

	stats := s.Statistics(ctx)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.InProcess)
	assert.Equal(t, 1, stats.Released)
	assert.Equal(t, 1, stats.Quarantine)
	assert.Equal(t, 0, stats.Recalled)
}
