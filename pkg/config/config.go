// Package config는 환경 변수 기반 설정 조회를 제공합니다.
// 서비스는 파일 설정을 먼저 읽고, 비밀 값은 이 패키지로 환경 변수에서 덮어씁니다.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 인터페이스는 설정 값에 액세스하기 위한 메서드를 정의합니다.
type Config interface {
	IsSet(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
}

// viperConfig는 viper를 사용하여 Config 인터페이스를 구현합니다.
type viperConfig struct {
	v *viper.Viper
}

// NewEnvConfig는 prefix가 붙은 환경 변수를 읽는 Config를 생성합니다.
// 키의 '.'은 '_'로 바뀝니다. 예: prefix "settlement", 키 "checkout.api_key" → SETTLEMENT_CHECKOUT_API_KEY
func NewEnvConfig(prefix string) Config {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(prefix))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &viperConfig{v: v}
}

// IsSet은 환경 변수가 비어 있지 않은 값으로 설정되었는지 확인합니다.
func (c *viperConfig) IsSet(key string) bool {
	return c.v.IsSet(key) && c.v.GetString(key) != ""
}

func (c *viperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *viperConfig) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *viperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *viperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// GetStringSlice는 쉼표로 구분된 값을 슬라이스로 반환합니다.
func (c *viperConfig) GetStringSlice(key string) []string {
	raw := c.v.GetString(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
