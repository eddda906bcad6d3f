// Package trialacct генерирует учётные данные пробного аккаунта:
// имя пользователя из названия компании, случайный пароль и ссылку входа.
//
// Пароль хранится и отправляется клиенту в открытом виде,
// хэширование здесь не применяется.
package trialacct

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"time"
)

// Account учётные данные пробного аккаунта, создаются один раз при
// регистрации заявки и далее не меняются.
type Account struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	AccessURL string `json:"access_url"`
}

const (
	usernamePrefix = "trial_"
	prefixRunes    = 4
	passwordLength = 8
	// без визуально похожих символов: 0/O, 1/l/I
	passwordCharset = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz23456789"
)

// GenerateUsername строит имя пользователя из названия компании:
// trial_<очищенный префикс>_<последние 4 цифры таймстампа>.
// В префиксе остаются только ASCII-буквы, цифры и иероглифы CJK,
// от него берутся первые четыре руны. Пустое название даёт пустой префикс,
// это допустимо.
func GenerateUsername(companyName string) string {
	cleaned := make([]rune, 0, prefixRunes)
	for _, r := range companyName {
		if !isUsernameRune(r) {
			continue
		}
		cleaned = append(cleaned, r)
		if len(cleaned) == prefixRunes {
			break
		}
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return usernamePrefix + string(cleaned) + "_" + ts[len(ts)-4:]
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 0x4e00 && r <= 0x9fa5:
		return true
	}
	return false
}

// GeneratePassword возвращает случайный пароль фиксированной длины,
// каждый символ выбирается независимо из passwordCharset.
func GeneratePassword() (string, error) {
	const op = "trialacct.GeneratePassword"
	buf := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		buf[i] = passwordCharset[n.Int64()]
	}
	return string(buf), nil
}

// AccessURL строит ссылку входа в пробную систему для заданного пользователя.
func AccessURL(baseURL, username string) string {
	return baseURL + "/login?user=" + url.QueryEscape(username)
}

// RandomSuffix возвращает суффикс вида "_" плюс n случайных байт
// в hex-кодировке. Используется как принудительное дополнение имени,
// когда лимит попыток генерации исчерпан.
func RandomSuffix(n int) (string, error) {
	const op = "trialacct.RandomSuffix"
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Sprintf("_%x", buf), nil
}

// New собирает полный набор учётных данных для компании.
// Не обращается к хранилищу, уникальность имени не гарантирует.
func New(companyName, baseURL string) (*Account, error) {
	const op = "trialacct.New"
	pass, err := GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	username := GenerateUsername(companyName)
	return &Account{
		Username:  username,
		Password:  pass,
		AccessURL: AccessURL(baseURL, username),
	}, nil
}
