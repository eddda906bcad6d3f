// Package models содержит доменные структуры заявок на пробный доступ и
// расчёт цены, а также вспомогательные типы для приёма данных из JSON-запросов.
package models

import "time"

// Статусы пробной записи. Pending объявлен в схеме, но в штатных потоках
// не используется: новая запись сразу создаётся активной.
const (
	TrialStatusPending   = "pending"
	TrialStatusActive    = "active"
	TrialStatusExpired   = "expired"
	TrialStatusConverted = "converted"
	TrialStatusCancelled = "cancelled"
)

// Типы контактов в записях о работе с клиентом.
const (
	FollowUpCall    = "call"
	FollowUpEmail   = "email"
	FollowUpMeeting = "meeting"
	FollowUpOther   = "other"
)

// TrialAccount учётные данные пробного аккаунта. Создаются один раз
// при регистрации заявки и далее не изменяются. Пароль хранится открытым
// текстом, см. lib/trialacct.
type TrialAccount struct {
	Username  string `json:"username"`   // Имя пользователя, уникально среди всех записей
	Password  string `json:"password"`   // Сгенерированный пароль
	AccessURL string `json:"access_url"` // Ссылка входа в пробную систему
}

// UsageStats счётчики использования функций продукта. Инкрементируются
// внешними системами, не ядром.
type UsageStats struct {
	DocumentsProcessed int `json:"documents_processed"`
	ApprovalRequests   int `json:"approval_requests"`
	ReportsGenerated   int `json:"reports_generated"`
}

// Feedback отзыв клиента о пробном периоде.
type Feedback struct {
	Rating      int        `json:"rating"` // Оценка 1..5
	Comments    string     `json:"comments"`
	SubmittedAt *time.Time `json:"submitted_at"`
}

// FollowUp запись о контакте с клиентом. Список только пополняется.
type FollowUp struct {
	ID          int        `json:"id"`
	TrialID     int        `json:"trial_id"`
	Type        string     `json:"type"` // call, email, meeting или other
	Content     string     `json:"content"`
	ContactedBy string     `json:"contacted_by"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Trial основная модель заявки на пробный доступ,
// используемая в бизнес-логике и хранилище.
type Trial struct {
	ID              int          `json:"id"`
	CompanyName     string       `json:"company_name"`
	ContactName     string       `json:"contact_name"`
	Phone           string       `json:"phone"`
	Email           string       `json:"email"`
	Account         TrialAccount `json:"trial_account"`
	TrialStartDate  time.Time    `json:"trial_start_date"`
	TrialEndDate    time.Time    `json:"trial_end_date"`
	Status          string       `json:"status"`
	LoginCount      int          `json:"login_count"`
	LastLoginAt     *time.Time   `json:"last_login_at,omitempty"`
	Usage           UsageStats   `json:"usage_stats"`
	Feedback        *Feedback    `json:"feedback,omitempty"`
	Source          string       `json:"source"`
	Referrer        string       `json:"referrer,omitempty"`
	IPAddress       string       `json:"ip_address,omitempty"`
	UserAgent       string       `json:"user_agent,omitempty"`
	ConvertedQuote  *int         `json:"converted_quote_id,omitempty"` // Слабая ссылка на заявку о цене
	ConvertedAt     *time.Time   `json:"converted_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// DummyTrialRequest используется для приёма данных формы "запросить пробный
// доступ" из JSON-запроса до их валидации.
type DummyTrialRequest struct {
	CompanyName string `json:"company_name" validate:"required,min=2,max=100"` // Название компании
	ContactName string `json:"contact_name" validate:"required,min=2,max=50"`  // Контактное лицо
	Phone       string `json:"phone" validate:"required,cnmobile"`             // Мобильный телефон
	Email       string `json:"email" validate:"required,email"`                // Электронная почта
	Source      string `json:"source,omitempty" validate:"omitempty,max=50"`   // Маркетинговый источник
	Referrer    string `json:"referrer,omitempty" validate:"omitempty,max=500"`
}

// DummyTrialUpdate административное обновление статуса и отзыва.
type DummyTrialUpdate struct {
	Status   string         `json:"status,omitempty" validate:"omitempty,oneof=pending active expired converted cancelled"`
	Feedback *DummyFeedback `json:"feedback,omitempty"`
}

// DummyFeedback отзыв клиента из JSON-запроса.
type DummyFeedback struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comments string `json:"comments,omitempty" validate:"omitempty,max=1000"`
}

// DummyExtend запрос на продление пробного периода.
type DummyExtend struct {
	Days int `json:"days" validate:"required,gt=0"`
}

// DummyConvert запрос на перевод пробной заявки в оплаченного клиента.
// Ссылка на заявку о цене необязательна.
type DummyConvert struct {
	QuoteID *int `json:"quote_id,omitempty" validate:"omitempty,gt=0"`
}

// DummyFollowUp запись о контакте из JSON-запроса. Дата приходит строкой
// в формате RFC3339, чтобы её можно было валидировать и парсить вручную.
type DummyFollowUp struct {
	Type        string `json:"type" validate:"required,oneof=call email meeting other"`
	Content     string `json:"content" validate:"required,max=1000"`
	ContactedBy string `json:"contacted_by" validate:"required,max=50"`
	ScheduledAt string `json:"scheduled_at,omitempty" validate:"omitempty"`
}

// TrialFilter параметры выборки заявок для административного списка.
type TrialFilter struct {
	Status    string     // Фильтр по статусу (пустая строка — без фильтра)
	StartDate *time.Time // Нижняя граница createdAt
	EndDate   *time.Time // Верхняя граница createdAt
	Search    string     // Подстрока в названии компании, имени, телефоне или почте
	Limit     int
	Offset    int
}

// TrialUsageReport отчёт об использовании одного пробного аккаунта.
type TrialUsageReport struct {
	TotalDays       int        `json:"total_days"`
	UsedDays        int        `json:"used_days"`
	RemainingDays   int        `json:"remaining_days"`
	UsageRate       float64    `json:"usage_rate"` // Процент использованных дней
	LoginCount      int        `json:"login_count"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	AvgLoginsPerDay float64    `json:"avg_logins_per_day"`
}

// TrialOverview сводная статистика по всем заявкам на пробный доступ.
type TrialOverview struct {
	TotalTrials     int     `json:"total_trials"`
	ActiveTrials    int     `json:"active_trials"`
	ExpiredTrials   int     `json:"expired_trials"`
	ConvertedTrials int     `json:"converted_trials"`
	TodayTrials     int     `json:"today_trials"`
	ExpiringTrials  int     `json:"expiring_trials"` // Активные с окончанием в ближайшие 7 дней
	ConversionRate  float64 `json:"conversion_rate"`
	TotalLogins     int     `json:"total_logins"`
	AvgLoginCount   float64 `json:"avg_login_count"`
	TotalDocuments  int     `json:"total_documents"`
	TotalApprovals  int     `json:"total_approvals"`
}

// TrialAccountInfo сообщение для письма с учётными данными нового
// пробного аккаунта.
type TrialAccountInfo struct {
	Email        string    `json:"email"`
	ContactName  string    `json:"contact_name"`
	CompanyName  string    `json:"company_name"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	AccessURL    string    `json:"access_url"`
	TrialEndDate time.Time `json:"trial_end_date"`
}

// TrialReminderInfo сообщение для письма-напоминания о скором окончании
// пробного периода.
type TrialReminderInfo struct {
	TrialID       int       `json:"trial_id"`
	Email         string    `json:"email"`
	ContactName   string    `json:"contact_name"`
	CompanyName   string    `json:"company_name"`
	TrialEndDate  time.Time `json:"trial_end_date"`
	DaysRemaining int       `json:"days_remaining"`
	LoginCount    int       `json:"login_count"`
}
