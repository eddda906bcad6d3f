package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/lead-intake/internal/models"
)

const trialColumns = `id, company_name, contact_name, phone, email,
	trial_username, trial_password, access_url,
	trial_start_date, trial_end_date, status, login_count, last_login_at,
	documents_processed, approval_requests, reports_generated,
	feedback_rating, feedback_comments, feedback_submitted_at,
	source, referrer, ip_address, user_agent,
	converted_quote_id, converted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrial(row rowScanner) (*models.Trial, error) {
	var t models.Trial
	var lastLoginAt, feedbackSubmittedAt, convertedAt sql.NullTime
	var feedbackRating, convertedQuoteID sql.NullInt64
	var feedbackComments string

	err := row.Scan(&t.ID, &t.CompanyName, &t.ContactName, &t.Phone, &t.Email,
		&t.Account.Username, &t.Account.Password, &t.Account.AccessURL,
		&t.TrialStartDate, &t.TrialEndDate, &t.Status, &t.LoginCount, &lastLoginAt,
		&t.Usage.DocumentsProcessed, &t.Usage.ApprovalRequests, &t.Usage.ReportsGenerated,
		&feedbackRating, &feedbackComments, &feedbackSubmittedAt,
		&t.Source, &t.Referrer, &t.IPAddress, &t.UserAgent,
		&convertedQuoteID, &convertedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastLoginAt.Valid {
		t.LastLoginAt = &lastLoginAt.Time
	}
	if feedbackRating.Valid {
		fb := models.Feedback{
			Rating:   int(feedbackRating.Int64),
			Comments: feedbackComments,
		}
		if feedbackSubmittedAt.Valid {
			fb.SubmittedAt = &feedbackSubmittedAt.Time
		}
		t.Feedback = &fb
	}
	if convertedQuoteID.Valid {
		id := int(convertedQuoteID.Int64)
		t.ConvertedQuote = &id
	}
	if convertedAt.Valid {
		t.ConvertedAt = &convertedAt.Time
	}
	return &t, nil
}

// CreateTrial вставляет новую заявку на пробный доступ и возвращает её ID.
// Нарушение уникального индекса по trial_username возвращается как обычная
// ошибка вставки.
func (s *Storage) CreateTrial(ctx context.Context, t models.Trial) (int, error) {
	const op = "storage.CreateTrial"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO trials (company_name, contact_name, phone, email,
			      trial_username, trial_password, access_url,
			      trial_start_date, trial_end_date, status,
			      source, referrer, ip_address, user_agent)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		t.CompanyName, t.ContactName, t.Phone, t.Email,
		t.Account.Username, t.Account.Password, t.Account.AccessURL,
		t.TrialStartDate, t.TrialEndDate, t.Status,
		t.Source, t.Referrer, t.IPAddress, t.UserAgent).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadTrial возвращает заявку по её ID.
func (s *Storage) ReadTrial(ctx context.Context, id int) (*models.Trial, error) {
	const op = "storage.ReadTrial"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + trialColumns + ` FROM trials WHERE id = $1`
	result, err := scanTrial(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadTrialByUsername возвращает заявку по имени пробного аккаунта.
func (s *Storage) ReadTrialByUsername(ctx context.Context, username string) (*models.Trial, error) {
	const op = "storage.ReadTrialByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + trialColumns + ` FROM trials WHERE trial_username = $1`
	result, err := scanTrial(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExistsTrialUsername проверяет занятость имени пробного аккаунта.
func (s *Storage) ExistsTrialUsername(ctx context.Context, username string) (bool, error) {
	const op = "storage.ExistsTrialUsername"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM trials WHERE trial_username = $1)`
	if err := s.DB.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ExistsTrialByIdentity проверяет, подавалась ли уже заявка с такой почтой
// или телефоном. Исторические записи (expired, cancelled) тоже учитываются.
func (s *Storage) ExistsTrialByIdentity(ctx context.Context, email, phone string) (bool, error) {
	const op = "storage.ExistsTrialByIdentity"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM trials WHERE email = $1 OR phone = $2)`
	if err := s.DB.QueryRowContext(ctx, query, email, phone).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// UpdateTrialStatus меняет статус заявки и возвращает количество изменённых строк.
func (s *Storage) UpdateTrialStatus(ctx context.Context, id int, status string) (int, error) {
	const op = "storage.UpdateTrialStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials SET status = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UpdateTrialFeedback сохраняет отзыв клиента о пробном периоде.
func (s *Storage) UpdateTrialFeedback(ctx context.Context, id int, fb models.Feedback) (int, error) {
	const op = "storage.UpdateTrialFeedback"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials
			  SET feedback_rating = $1, feedback_comments = $2,
			      feedback_submitted_at = $3, updated_at = NOW()
			  WHERE id = $4`
	result, err := s.DB.ExecContext(ctx, query, fb.Rating, fb.Comments, fb.SubmittedAt, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ExtendTrial прибавляет days дней к дате окончания пробного периода.
// Отсчёт идёт от текущей даты окончания, не от настоящего момента, поэтому
// последовательные продления складываются. Возвращает новую дату окончания.
func (s *Storage) ExtendTrial(ctx context.Context, id int, days int) (time.Time, error) {
	const op = "storage.ExtendTrial"
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials
			  SET trial_end_date = trial_end_date + make_interval(days => $1),
			      updated_at = NOW()
			  WHERE id = $2
			  RETURNING trial_end_date`
	var newEndDate time.Time
	if err := s.DB.QueryRowContext(ctx, query, days, id).Scan(&newEndDate); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return newEndDate, nil
}

// RecordTrialLogin увеличивает счётчик входов на единицу и обновляет
// дату последнего входа. Единственный путь инкремента login_count.
func (s *Storage) RecordTrialLogin(ctx context.Context, id int) (int, error) {
	const op = "storage.RecordTrialLogin"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials
			  SET login_count = login_count + 1, last_login_at = NOW(), updated_at = NOW()
			  WHERE id = $1
			  RETURNING login_count`
	var loginCount int
	if err := s.DB.QueryRowContext(ctx, query, id).Scan(&loginCount); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return loginCount, nil
}

// ConvertTrial помечает заявку как конвертированную, опционально привязывая
// заявку на расчёт цены.
func (s *Storage) ConvertTrial(ctx context.Context, id int, quoteID *int) (int, error) {
	const op = "storage.ConvertTrial"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials
			  SET status = $1, converted_quote_id = $2, converted_at = NOW(), updated_at = NOW()
			  WHERE id = $3`
	result, err := s.DB.ExecContext(ctx, query, models.TrialStatusConverted, quoteID, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemoveTrial удаляет заявку по ID и возвращает количество удалённых строк.
// Используется только административным инструментарием, штатные потоки
// переводят записи в терминальные статусы вместо удаления.
func (s *Storage) RemoveTrial(ctx context.Context, id int) (int, error) {
	const op = "storage.RemoveTrial"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM trials WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

func buildTrialFilter(filter models.TrialFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conds = append(conds, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conds = append(conds, "created_at <= $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(company_name ILIKE $"+n+" OR contact_name ILIKE $"+n+
			" OR phone ILIKE $"+n+" OR email ILIKE $"+n+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListTrials возвращает заявки по фильтру, отсортированные по дате создания,
// с пагинацией.
func (s *Storage) ListTrials(ctx context.Context, filter models.TrialFilter) ([]*models.Trial, error) {
	const op = "storage.ListTrials"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := buildTrialFilter(filter)
	args = append(args, filter.Limit)
	limitPos := strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPos := strconv.Itoa(len(args))

	query := `SELECT ` + trialColumns + ` FROM trials` + where +
		` ORDER BY created_at DESC LIMIT $` + limitPos + ` OFFSET $` + offsetPos
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Trial
	for rows.Next() {
		item, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountTrials возвращает общее число заявок, подходящих под фильтр.
func (s *Storage) CountTrials(ctx context.Context, filter models.TrialFilter) (int, error) {
	const op = "storage.CountTrials"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := buildTrialFilter(filter)
	var total int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM trials"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// SweepExpiredTrials пакетно переводит активные заявки с истёкшей датой
// окончания в статус expired. Возвращает количество изменённых строк;
// повторный запуск без сдвига времени вернёт 0.
func (s *Storage) SweepExpiredTrials(ctx context.Context, now time.Time) (int, error) {
	const op = "storage.SweepExpiredTrials"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials
			  SET status = $1, updated_at = NOW()
			  WHERE status = $2 AND trial_end_date < $3`
	result, err := s.DB.ExecContext(ctx, query, models.TrialStatusExpired, models.TrialStatusActive, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindTrialsExpiringSoon находит активные заявки, пробный период которых
// заканчивается в интервале [now, now + windowDays]. Заявки, по которым
// напоминание уже отправлено, исключаются.
func (s *Storage) FindTrialsExpiringSoon(ctx context.Context, now time.Time, windowDays int) ([]*models.Trial, error) {
	const op = "storage.FindTrialsExpiringSoon"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	deadline := now.AddDate(0, 0, windowDays)
	query := `SELECT ` + trialColumns + ` FROM trials
			  WHERE status = $1 AND trial_end_date >= $2 AND trial_end_date <= $3
			  AND reminder_sent_at IS NULL
			  ORDER BY trial_end_date`
	rows, err := s.DB.QueryContext(ctx, query, models.TrialStatusActive, now, deadline)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Trial
	for rows.Next() {
		item, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkTrialReminded проставляет отметку об отправленном напоминании,
// чтобы заявка не попадала в выборку повторно.
func (s *Storage) MarkTrialReminded(ctx context.Context, id int) (int, error) {
	const op = "storage.MarkTrialReminded"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials SET reminder_sent_at = NOW() WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// AddFollowUp добавляет запись о контакте с клиентом и возвращает её
// с заполненными ID и датой создания.
func (s *Storage) AddFollowUp(ctx context.Context, fu models.FollowUp) (*models.FollowUp, error) {
	const op = "storage.AddFollowUp"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO trial_follow_ups (trial_id, type, content, contacted_by, scheduled_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, created_at`
	err := s.DB.QueryRowContext(ctx, query,
		fu.TrialID, fu.Type, fu.Content, fu.ContactedBy, fu.ScheduledAt).Scan(&fu.ID, &fu.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &fu, nil
}

// ListFollowUps возвращает записи о контактах по заявке в порядке добавления.
func (s *Storage) ListFollowUps(ctx context.Context, trialID int) ([]*models.FollowUp, error) {
	const op = "storage.ListFollowUps"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, trial_id, type, content, contacted_by, scheduled_at, completed_at, created_at
			  FROM trial_follow_ups
			  WHERE trial_id = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, trialID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.FollowUp
	for rows.Next() {
		var fu models.FollowUp
		var scheduledAt, completedAt sql.NullTime
		if err := rows.Scan(&fu.ID, &fu.TrialID, &fu.Type, &fu.Content, &fu.ContactedBy,
			&scheduledAt, &completedAt, &fu.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if scheduledAt.Valid {
			fu.ScheduledAt = &scheduledAt.Time
		}
		if completedAt.Valid {
			fu.CompletedAt = &completedAt.Time
		}
		result = append(result, &fu)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// TrialOverview собирает сводную статистику по заявкам на пробный доступ.
func (s *Storage) TrialOverview(ctx context.Context, now time.Time) (*models.TrialOverview, error) {
	const op = "storage.TrialOverview"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var ov models.TrialOverview
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	query := `SELECT
			      COUNT(*),
			      COUNT(*) FILTER (WHERE status = 'active'),
			      COUNT(*) FILTER (WHERE status = 'expired'),
			      COUNT(*) FILTER (WHERE status = 'converted'),
			      COUNT(*) FILTER (WHERE created_at >= $1),
			      COUNT(*) FILTER (WHERE status = 'active' AND trial_end_date <= $2),
			      COALESCE(SUM(login_count), 0),
			      COALESCE(AVG(login_count) FILTER (WHERE status = 'active'), 0),
			      COALESCE(SUM(documents_processed) FILTER (WHERE status = 'active'), 0),
			      COALESCE(SUM(approval_requests) FILTER (WHERE status = 'active'), 0)
			  FROM trials`
	err := s.DB.QueryRowContext(ctx, query, today, now.AddDate(0, 0, 7)).Scan(
		&ov.TotalTrials, &ov.ActiveTrials, &ov.ExpiredTrials, &ov.ConvertedTrials,
		&ov.TodayTrials, &ov.ExpiringTrials,
		&ov.TotalLogins, &ov.AvgLoginCount, &ov.TotalDocuments, &ov.TotalApprovals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ov.TotalTrials > 0 {
		ov.ConversionRate = float64(ov.ConvertedTrials) / float64(ov.TotalTrials) * 100
	}
	return &ov, nil
}
