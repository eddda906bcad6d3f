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

const quoteColumns = `id, company_name, contact_name, phone, email,
	company_type, user_count, requirements, status, assigned_to, notes,
	quoted_price, quoted_at, ip_address, user_agent, referrer,
	created_at, updated_at`

func scanQuote(row rowScanner) (*models.Quote, error) {
	var q models.Quote
	var quotedPrice sql.NullFloat64
	var quotedAt sql.NullTime

	err := row.Scan(&q.ID, &q.CompanyName, &q.ContactName, &q.Phone, &q.Email,
		&q.CompanyType, &q.UserCount, &q.Requirements, &q.Status, &q.AssignedTo, &q.Notes,
		&quotedPrice, &quotedAt, &q.IPAddress, &q.UserAgent, &q.Referrer,
		&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if quotedPrice.Valid {
		q.QuotedPrice = &quotedPrice.Float64
	}
	if quotedAt.Valid {
		q.QuotedAt = &quotedAt.Time
	}
	return &q, nil
}

// CreateQuote вставляет новую заявку на расчёт цены и возвращает её ID.
func (s *Storage) CreateQuote(ctx context.Context, q models.Quote) (int, error) {
	const op = "storage.CreateQuote"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO quotes (company_name, contact_name, phone, email,
			      company_type, user_count, requirements, status,
			      ip_address, user_agent, referrer)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		q.CompanyName, q.ContactName, q.Phone, q.Email,
		q.CompanyType, q.UserCount, q.Requirements, q.Status,
		q.IPAddress, q.UserAgent, q.Referrer).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadQuote возвращает заявку на расчёт цены по её ID.
func (s *Storage) ReadQuote(ctx context.Context, id int) (*models.Quote, error) {
	const op = "storage.ReadQuote"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	result, err := scanQuote(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateQuote обновляет административные поля заявки и возвращает количество
// изменённых строк. Дата quoted_at проставляется при первом появлении цены.
func (s *Storage) UpdateQuote(ctx context.Context, id int, upd models.DummyQuoteUpdate) (int, error) {
	const op = "storage.UpdateQuote"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var sets []string
	var args []any

	if upd.Status != "" {
		args = append(args, upd.Status)
		sets = append(sets, "status = $"+strconv.Itoa(len(args)))
	}
	if upd.AssignedTo != "" {
		args = append(args, upd.AssignedTo)
		sets = append(sets, "assigned_to = $"+strconv.Itoa(len(args)))
	}
	if upd.Notes != "" {
		args = append(args, upd.Notes)
		sets = append(sets, "notes = $"+strconv.Itoa(len(args)))
	}
	if upd.QuotedPrice != nil {
		args = append(args, *upd.QuotedPrice)
		sets = append(sets, "quoted_price = $"+strconv.Itoa(len(args)))
		sets = append(sets, "quoted_at = COALESCE(quoted_at, NOW())")
	}
	if len(sets) == 0 {
		return 0, nil
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := "UPDATE quotes SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args))
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RemoveQuote удаляет заявку по ID и возвращает количество удалённых строк.
func (s *Storage) RemoveQuote(ctx context.Context, id int) (int, error) {
	const op = "storage.RemoveQuote"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM quotes WHERE id = $1`
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

func buildQuoteFilter(filter models.QuoteFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.CompanyType != "" {
		args = append(args, filter.CompanyType)
		conds = append(conds, "company_type = $"+strconv.Itoa(len(args)))
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
			" OR phone ILIKE $"+n+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListQuotes возвращает заявки на расчёт цены по фильтру с пагинацией.
func (s *Storage) ListQuotes(ctx context.Context, filter models.QuoteFilter) ([]*models.Quote, error) {
	const op = "storage.ListQuotes"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := buildQuoteFilter(filter)
	args = append(args, filter.Limit)
	limitPos := strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPos := strconv.Itoa(len(args))

	query := `SELECT ` + quoteColumns + ` FROM quotes` + where +
		` ORDER BY created_at DESC LIMIT $` + limitPos + ` OFFSET $` + offsetPos
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Quote
	for rows.Next() {
		item, err := scanQuote(rows)
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

// CountQuotes возвращает общее число заявок, подходящих под фильтр.
func (s *Storage) CountQuotes(ctx context.Context, filter models.QuoteFilter) (int, error) {
	const op = "storage.CountQuotes"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	where, args := buildQuoteFilter(filter)
	var total int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM quotes"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

// QuoteOverview собирает сводную статистику по заявкам на расчёт цены,
// включая разбивку по типу компании и по месяцам за последний год.
func (s *Storage) QuoteOverview(ctx context.Context, now time.Time) (*models.QuoteOverview, error) {
	const op = "storage.QuoteOverview"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ov := models.QuoteOverview{ByCompanyType: make(map[string]int)}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	query := `SELECT
			      COUNT(*),
			      COUNT(*) FILTER (WHERE status = 'pending'),
			      COUNT(*) FILTER (WHERE status = 'converted'),
			      COUNT(*) FILTER (WHERE created_at >= $1)
			  FROM quotes`
	err := s.DB.QueryRowContext(ctx, query, today).Scan(
		&ov.TotalQuotes, &ov.PendingQuotes, &ov.ConvertedQuotes, &ov.TodayQuotes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ov.TotalQuotes > 0 {
		ov.ConversionRate = float64(ov.ConvertedQuotes) / float64(ov.TotalQuotes) * 100
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT company_type, COUNT(*) FROM quotes GROUP BY company_type`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var companyType string
		var count int
		if err := rows.Scan(&companyType, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ov.ByCompanyType[companyType] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	monthRows, err := s.DB.QueryContext(ctx, `SELECT
			      EXTRACT(YEAR FROM created_at)::int,
			      EXTRACT(MONTH FROM created_at)::int,
			      COUNT(*)
			  FROM quotes
			  WHERE created_at >= $1
			  GROUP BY 1, 2
			  ORDER BY 1, 2`, now.AddDate(-1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = monthRows.Close()
	}()
	for monthRows.Next() {
		var mc models.MonthCount
		if err := monthRows.Scan(&mc.Year, &mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ov.ByMonth = append(ov.ByMonth, mc)
	}
	if err = monthRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &ov, nil
}
