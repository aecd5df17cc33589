// Package adapter - граница запрос/ответ, общая для всех транспортов.
//
// Транспорт (API Gateway событие, gin) превращает свой запрос в Inbound,
// адаптер проводит его через конвейер:
//
//	Received -> MethodValidated -> BodyParsed -> QueryNormalized ->
//	HandlerInvoked -> ResponseValidated -> Sent
//
// Любая стадия может завершить запрос досрочно, но Sent достигается всегда:
// на выходе всегда *common.Response с JSON конвертом.
package adapter

// DefaultMaxBodySize - 6 MiB, предел синхронного вызова Lambda.
const DefaultMaxBodySize int64 = 6 << 20

// Config - настройки адаптера. Не меняются после создания Adapter.
type Config struct {
	// MaxBodySize - максимальный размер тела в байтах.
	MaxBodySize int64
	// ValidateContentType - требовать application/json для тел запросов.
	ValidateContentType bool
	// MultiValueQueryParams - склеивать повторяющиеся параметры через запятую
	// вместо того, чтобы брать первое значение.
	MultiValueQueryParams bool
	// CORS - nil отключает CORS, &CORSOptions{} включает значения по умолчанию.
	CORS *CORSOptions
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:         DefaultMaxBodySize,
		ValidateContentType: true,
	}
}

func (c Config) maxBodySize() int64 {
	if c.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}
