package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realify/realify-backend/internal/domain"
	"github.com/realify/realify-backend/internal/metrics"
	"github.com/realify/realify-backend/internal/repository"
	"github.com/realify/realify-backend/pkg/logger"
)

type fakeRunner struct {
	output    any
	err       error
	lastModel string
	lastInput map[string]any
	calls     int
}

func (f *fakeRunner) Run(_ context.Context, model string, input map[string]any) (any, error) {
	f.calls++
	f.lastModel = model
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type generationFixture struct {
	svc     GenerationService
	runner  *fakeRunner
	ledger  *repository.InMemoryLedgerRepository
	history *repository.InMemoryHistoryRepository
}

func newGenerationFixture(t *testing.T, runner *fakeRunner) *generationFixture {
	t.Helper()
	log := logger.New(logger.ERROR)
	ledgerRepo := repository.NewInMemoryLedgerRepository(log)
	historyRepo := repository.NewInMemoryHistoryRepository(log)
	mediaRepo := repository.NewInMemoryMediaRepository(log)
	usageMetrics := metrics.NewUsageMetrics(prometheus.NewRegistry(), log)

	ledgerService := NewLedgerService(ledgerRepo, nil, usageMetrics, log)
	mediaService := NewMediaService(mediaRepo, log)

	return &generationFixture{
		svc:     NewGenerationService(runner, ledgerService, historyRepo, mediaService, usageMetrics, log),
		runner:  runner,
		ledger:  ledgerRepo,
		history: historyRepo,
	}
}

func grantUnits(t *testing.T, repo *repository.InMemoryLedgerRepository, units int64) {
	t.Helper()
	_, err := repo.Grant(context.Background(), domain.Grant{
		UserID:  "u1",
		Plan:    domain.PlanCreator,
		Units:   units,
		SetPlan: true,
	})
	require.NoError(t, err)
}

func TestGenerateRequiresPrompt(t *testing.T) {
	f := newGenerationFixture(t, &fakeRunner{})

	_, err := f.svc.Generate(context.Background(), GenerationInput{
		UserID: "u1",
		Model:  domain.ModelIdeogram,
	})
	assert.ErrorIs(t, err, domain.ErrMissingPrompt)
	assert.Equal(t, 0, f.runner.calls)
}

func TestGenerateWithoutSubscription(t *testing.T) {
	f := newGenerationFixture(t, &fakeRunner{})

	_, err := f.svc.Generate(context.Background(), GenerationInput{
		UserID: "u1",
		Prompt: "a cat",
		Model:  domain.ModelIdeogram,
	})
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
	assert.Equal(t, 0, f.runner.calls)
}

func TestGenerateSuccessConsumesUnits(t *testing.T) {
	runner := &fakeRunner{output: "https://cdn.example.com/out.png"}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 750)
	ctx := context.Background()

	result, err := f.svc.Generate(ctx, GenerationInput{
		UserID:      "u1",
		Prompt:      "a cat on a roof",
		Model:       domain.ModelIdeogram,
		AspectRatio: "16:9",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/out.png", result.ImageURL)
	assert.Equal(t, int64(10), result.Cost)
	assert.Equal(t, int64(740), result.UnitsRemaining)

	assert.Equal(t, domain.ReplicateModelIdeogram, runner.lastModel)
	assert.Equal(t, "16:9", runner.lastInput["aspect_ratio"])

	records, err := f.history.ListByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a cat on a roof", records[0].Prompt)
	assert.Equal(t, result.ImageURL, records[0].ImageURL)
}

func TestGenerateUnknownAspectRatioFallsBack(t *testing.T) {
	runner := &fakeRunner{output: "https://cdn.example.com/out.png"}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 100)

	_, err := f.svc.Generate(context.Background(), GenerationInput{
		UserID:      "u1",
		Prompt:      "a cat",
		Model:       domain.ModelIdeogram,
		AspectRatio: "21:9",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAspectRatio, runner.lastInput["aspect_ratio"])
}

func TestGenerateGPTQualityAffectsCost(t *testing.T) {
	runner := &fakeRunner{output: "https://cdn.example.com/out.png"}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 100)

	result, err := f.svc.Generate(context.Background(), GenerationInput{
		UserID:  "u1",
		Prompt:  "a cat",
		Model:   domain.ModelGPT,
		Quality: domain.QualityLow,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Cost)
	assert.Equal(t, int64(98), result.UnitsRemaining)
	assert.Equal(t, domain.ReplicateModelGPT, runner.lastModel)
	assert.Equal(t, "low", runner.lastInput["quality"])
}

func TestGenerateGPTPassesReferenceImages(t *testing.T) {
	runner := &fakeRunner{output: "https://cdn.example.com/out.png"}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 100)

	_, err := f.svc.Generate(context.Background(), GenerationInput{
		UserID: "u1",
		Prompt: "same cat but watercolor",
		Model:  domain.ModelGPT,
		Images: []domain.UploadedImage{
			{ContentType: "image/png", Data: []byte{0x89, 0x50}},
		},
	})
	require.NoError(t, err)

	uris, ok := runner.lastInput["input_images"].([]string)
	require.True(t, ok)
	require.Len(t, uris, 1)
	assert.True(t, strings.HasPrefix(uris[0], "data:image/png;base64,"))
}

func TestGenerateOverloadedProviderIsFree(t *testing.T) {
	runner := &fakeRunner{err: errors.New("E003: model temporarily unavailable")}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 100)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, GenerationInput{
		UserID: "u1",
		Prompt: "a cat",
		Model:  domain.ModelIdeogram,
	})
	assert.ErrorIs(t, err, domain.ErrServersBusy)

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), sub.UnitsRemaining)
}

func TestGenerateProviderFailureIsFree(t *testing.T) {
	runner := &fakeRunner{err: errors.New("prediction failed")}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 100)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, GenerationInput{
		UserID: "u1",
		Prompt: "a cat",
		Model:  domain.ModelIdeogram,
	})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), sub.UnitsRemaining)
}

func TestGenerateUnparseableOutputIsFree(t *testing.T) {
	runner := &fakeRunner{output: map[string]any{"status": "done"}}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 100)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, GenerationInput{
		UserID: "u1",
		Prompt: "a cat",
		Model:  domain.ModelIdeogram,
	})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)

	sub, err := f.ledger.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), sub.UnitsRemaining)
}

func TestGenerateBytesOutputStoredAsMedia(t *testing.T) {
	// PNG однобайтовой "картинки" в base64
	runner := &fakeRunner{output: "data:image/png;base64,iVBORw0KGgo="}
	f := newGenerationFixture(t, runner)
	grantUnits(t, f.ledger, 100)

	result, err := f.svc.Generate(context.Background(), GenerationInput{
		UserID: "u1",
		Prompt: "a cat",
		Model:  domain.ModelIdeogram,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.ImageURL, "/media/"))
}

func TestGalleryNeverFails(t *testing.T) {
	f := newGenerationFixture(t, &fakeRunner{})

	records := f.svc.Gallery(context.Background(), "ghost", 50)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
