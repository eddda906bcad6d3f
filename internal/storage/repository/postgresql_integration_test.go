package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lead-intake/internal/models"
)

func TestStorage_CreateAndReadTrial(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	trial := GetTestTrial("trial_Test_0001")
	id := factory.CreateTrial(t, trial)

	got, err := storage.ReadTrial(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, trial.CompanyName, got.CompanyName)
	assert.Equal(t, trial.Account.Username, got.Account.Username)
	assert.Equal(t, trial.Account.Password, got.Account.Password)
	assert.Equal(t, models.TrialStatusActive, got.Status)
	assert.Equal(t, 0, got.LoginCount)
	assert.Nil(t, got.Feedback)
	assert.Nil(t, got.ConvertedQuote)

	byUsername, err := storage.ReadTrialByUsername(context.Background(), trial.Account.Username)
	require.NoError(t, err)
	assert.Equal(t, id, byUsername.ID)

	_, err = storage.ReadTrial(context.Background(), id+1000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStorage_CreateTrial_UniqueUsername(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	trial := GetTestTrial("trial_Dup_0001")
	factory.CreateTrial(t, trial)

	// Вторую вставку с тем же именем отклонит уникальный индекс
	trial.Email = "other@example.com"
	_, err := storage.CreateTrial(context.Background(), trial)
	require.Error(t, err)

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, pgerrcode.UniqueViolation, pgErr.Code)
}

func TestStorage_ExistsTrial(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	trial := GetTestTrial("trial_Ex_0001")
	factory.CreateTrial(t, trial)

	exists, err := storage.ExistsTrialUsername(context.Background(), "trial_Ex_0001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.ExistsTrialUsername(context.Background(), "trial_Nope_0001")
	require.NoError(t, err)
	assert.False(t, exists)

	// Совпадение по почте или телефону
	exists, err = storage.ExistsTrialByIdentity(context.Background(), trial.Email, "10000000000")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.ExistsTrialByIdentity(context.Background(), "none@example.com", trial.Phone)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.ExistsTrialByIdentity(context.Background(), "none@example.com", "10000000000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStorage_UpdateTrialStatusAndFeedback(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	id := factory.CreateTrial(t, GetTestTrial("trial_Upd_0001"))

	count, err := storage.UpdateTrialStatus(context.Background(), id, models.TrialStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	submittedAt := time.Now().UTC()
	count, err = storage.UpdateTrialFeedback(context.Background(), id, models.Feedback{
		Rating:      5,
		Comments:    "отличный продукт",
		SubmittedAt: &submittedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := storage.ReadTrial(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusCancelled, got.Status)
	require.NotNil(t, got.Feedback)
	assert.Equal(t, 5, got.Feedback.Rating)
	assert.Equal(t, "отличный продукт", got.Feedback.Comments)
	require.NotNil(t, got.Feedback.SubmittedAt)

	count, err = storage.UpdateTrialStatus(context.Background(), id+1000, models.TrialStatusActive)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStorage_ExtendTrial(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	trial := GetTestTrial("trial_Ext_0001")
	id := factory.CreateTrial(t, trial)

	newEnd, err := storage.ExtendTrial(context.Background(), id, 7)
	require.NoError(t, err)
	assert.WithinDuration(t, trial.TrialEndDate.AddDate(0, 0, 7), newEnd, time.Second)

	// Продления складываются
	newEnd, err = storage.ExtendTrial(context.Background(), id, 3)
	require.NoError(t, err)
	assert.WithinDuration(t, trial.TrialEndDate.AddDate(0, 0, 10), newEnd, time.Second)
}

func TestStorage_RecordTrialLogin(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	id := factory.CreateTrial(t, GetTestTrial("trial_Log_0001"))

	count, err := storage.RecordTrialLogin(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = storage.RecordTrialLogin(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := storage.ReadTrial(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LoginCount)
	require.NotNil(t, got.LastLoginAt)
}

func TestStorage_ConvertTrial(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	trialID := factory.CreateTrial(t, GetTestTrial("trial_Conv_0001"))
	quoteID := factory.CreateQuote(t, GetTestQuote())

	count, err := storage.ConvertTrial(context.Background(), trialID, &quoteID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := storage.ReadTrial(context.Background(), trialID)
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusConverted, got.Status)
	require.NotNil(t, got.ConvertedQuote)
	assert.Equal(t, quoteID, *got.ConvertedQuote)
	require.NotNil(t, got.ConvertedAt)
}

func TestStorage_SweepExpiredTrials(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	now := time.Now().UTC()

	// Две активные просроченные, одна активная будущая, одна отменённая просроченная
	factory.CreateTrialWithDates(t, "trial_Sw_0001", models.TrialStatusActive, now.AddDate(0, 0, -40), now.AddDate(0, 0, -2))
	factory.CreateTrialWithDates(t, "trial_Sw_0002", models.TrialStatusActive, now.AddDate(0, 0, -35), now.AddDate(0, 0, -1))
	keepID := factory.CreateTrialWithDates(t, "trial_Sw_0003", models.TrialStatusActive, now, now.AddDate(0, 0, 20))
	factory.CreateTrialWithDates(t, "trial_Sw_0004", models.TrialStatusCancelled, now.AddDate(0, 0, -40), now.AddDate(0, 0, -2))

	swept, err := storage.SweepExpiredTrials(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	got, err := storage.ReadTrial(context.Background(), keepID)
	require.NoError(t, err)
	assert.Equal(t, models.TrialStatusActive, got.Status)

	// Повторный запуск ничего не находит
	swept, err = storage.SweepExpiredTrials(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}

func TestStorage_FindTrialsExpiringSoon(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	now := time.Now().UTC()

	soonID := factory.CreateTrialWithDates(t, "trial_Fx_0001", models.TrialStatusActive, now.AddDate(0, 0, -27), now.AddDate(0, 0, 3))
	factory.CreateTrialWithDates(t, "trial_Fx_0002", models.TrialStatusActive, now, now.AddDate(0, 0, 20))
	factory.CreateTrialWithDates(t, "trial_Fx_0003", models.TrialStatusExpired, now.AddDate(0, 0, -27), now.AddDate(0, 0, 3))

	trials, err := storage.FindTrialsExpiringSoon(context.Background(), now, 7)
	require.NoError(t, err)
	require.Len(t, trials, 1)
	assert.Equal(t, soonID, trials[0].ID)

	// После отметки заявка в выборку больше не попадает
	marked, err := storage.MarkTrialReminded(context.Background(), soonID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	trials, err = storage.FindTrialsExpiringSoon(context.Background(), now, 7)
	require.NoError(t, err)
	assert.Empty(t, trials)
}

func TestStorage_FollowUps(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	trialID := factory.CreateTrial(t, GetTestTrial("trial_Fu_0001"))

	first, err := storage.AddFollowUp(context.Background(), models.FollowUp{
		TrialID:     trialID,
		Type:        models.FollowUpCall,
		Content:     "позвонили клиенту",
		ContactedBy: "manager1",
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	second, err := storage.AddFollowUp(context.Background(), models.FollowUp{
		TrialID:     trialID,
		Type:        models.FollowUpEmail,
		Content:     "отправили письмо",
		ContactedBy: "manager2",
	})
	require.NoError(t, err)

	followUps, err := storage.ListFollowUps(context.Background(), trialID)
	require.NoError(t, err)
	require.Len(t, followUps, 2)
	// В порядке добавления
	assert.Equal(t, first.ID, followUps[0].ID)
	assert.Equal(t, second.ID, followUps[1].ID)
	assert.Equal(t, models.FollowUpCall, followUps[0].Type)

	// Удаление заявки каскадно убирает записи о контактах
	count, err := storage.RemoveTrial(context.Background(), trialID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	followUps, err = storage.ListFollowUps(context.Background(), trialID)
	require.NoError(t, err)
	assert.Empty(t, followUps)
}

func TestStorage_ListAndCountTrials(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	now := time.Now().UTC()

	factory.CreateTrialWithDates(t, "trial_Ls_0001", models.TrialStatusActive, now, now.AddDate(0, 0, 30))
	factory.CreateTrialWithDates(t, "trial_Ls_0002", models.TrialStatusExpired, now.AddDate(0, 0, -60), now.AddDate(0, 0, -30))
	other := GetTestTrial("trial_Ls_0003")
	other.CompanyName = "Ромашка"
	factory.CreateTrial(t, other)

	tests := []struct {
		name      string
		filter    models.TrialFilter
		wantCount int
	}{
		{
			name:      "все записи",
			filter:    models.TrialFilter{Limit: 10},
			wantCount: 3,
		},
		{
			name:      "фильтр по статусу",
			filter:    models.TrialFilter{Status: models.TrialStatusExpired, Limit: 10},
			wantCount: 1,
		},
		{
			name:      "поиск по названию компании",
			filter:    models.TrialFilter{Search: "Ромашка", Limit: 10},
			wantCount: 1,
		},
		{
			name:      "пагинация",
			filter:    models.TrialFilter{Limit: 2},
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trials, err := storage.ListTrials(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, trials, tt.wantCount)
		})
	}

	total, err := storage.CountTrials(context.Background(), models.TrialFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestStorage_TrialOverview(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	now := time.Now().UTC()

	factory.CreateTrialWithDates(t, "trial_Ov_0001", models.TrialStatusActive, now, now.AddDate(0, 0, 30))
	factory.CreateTrialWithDates(t, "trial_Ov_0002", models.TrialStatusActive, now.AddDate(0, 0, -27), now.AddDate(0, 0, 3))
	factory.CreateTrialWithDates(t, "trial_Ov_0003", models.TrialStatusExpired, now.AddDate(0, 0, -60), now.AddDate(0, 0, -30))
	convertedID := factory.CreateTrialWithDates(t, "trial_Ov_0004", models.TrialStatusActive, now.AddDate(0, 0, -10), now.AddDate(0, 0, 20))
	_, err := storage.ConvertTrial(context.Background(), convertedID, nil)
	require.NoError(t, err)

	overview, err := storage.TrialOverview(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 4, overview.TotalTrials)
	assert.Equal(t, 2, overview.ActiveTrials)
	assert.Equal(t, 1, overview.ExpiredTrials)
	assert.Equal(t, 1, overview.ConvertedTrials)
	assert.Equal(t, 1, overview.ExpiringTrials)
	assert.InDelta(t, 25.0, overview.ConversionRate, 0.01)
}

func TestStorage_QuoteLifecycle(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	id := factory.CreateQuote(t, GetTestQuote())

	got, err := storage.ReadQuote(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ООО Тест", got.CompanyName)
	assert.Equal(t, models.QuoteStatusPending, got.Status)
	assert.Nil(t, got.QuotedPrice)
	assert.Nil(t, got.QuotedAt)

	price := 49999.99
	count, err := storage.UpdateQuote(context.Background(), id, models.DummyQuoteUpdate{
		Status:      models.QuoteStatusQuoted,
		AssignedTo:  "manager1",
		QuotedPrice: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err = storage.ReadQuote(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteStatusQuoted, got.Status)
	assert.Equal(t, "manager1", got.AssignedTo)
	require.NotNil(t, got.QuotedPrice)
	assert.InDelta(t, price, *got.QuotedPrice, 0.001)
	// Дата выставления цены проставляется вместе с ценой
	require.NotNil(t, got.QuotedAt)

	count, err = storage.RemoveQuote(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = storage.ReadQuote(context.Background(), id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestStorage_QuoteOverview(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)

	q1 := GetTestQuote()
	factory.CreateQuote(t, q1)

	q2 := GetTestQuote()
	q2.CompanyType = "government"
	q2.Status = models.QuoteStatusConverted
	factory.CreateQuote(t, q2)

	overview, err := storage.QuoteOverview(context.Background(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, 2, overview.TotalQuotes)
	assert.Equal(t, 1, overview.PendingQuotes)
	assert.Equal(t, 1, overview.ConvertedQuotes)
	assert.Equal(t, 2, overview.TodayQuotes)
	assert.Equal(t, 1, overview.ByCompanyType["enterprise"])
	assert.Equal(t, 1, overview.ByCompanyType["government"])
	assert.InDelta(t, 50.0, overview.ConversionRate, 0.01)
}

func TestStorage_Users(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	uid, err := storage.CreateUser(context.Background(), "manager1", "m1@example.com", "hashedpassword", "manager")
	require.NoError(t, err)
	assert.NotEmpty(t, uid)

	user, err := storage.GetUserByUsername(context.Background(), "manager1")
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)
	assert.Equal(t, "m1@example.com", user.Email)
	assert.Equal(t, "manager", user.Role)

	_, err = storage.GetUserByUsername(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
