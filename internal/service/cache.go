// cache.go — LRU-кэш записей анализа с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goanstore/analysis-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "an_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш записей анализа.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "an_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша записей анализа.",
	})
)

// CacheService — LRU-кэш записей анализа с автоматическим TTL.
// Каждый экземпляр модуля имеет собственный in-memory кэш
// (per-instance, stateless архитектура). Ключ — "owner_id/id",
// так что кэш не может выдать запись чужому владельцу.
type CacheService struct {
	cache *expirable.LRU[string, *model.AnalysisRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.AnalysisRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// cacheKey — ключ кэша в разрезе владельца.
func cacheKey(ownerID, id string) string {
	return ownerID + "/" + id
}

// Get возвращает запись из кэша по (ownerID, id).
// Возвращает (запись, true) при hit или (nil, false) при miss.
func (c *CacheService) Get(ownerID, id string) (*model.AnalysisRecord, bool) {
	val, ok := c.cache.Get(cacheKey(ownerID, id))
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(rec *model.AnalysisRecord) {
	c.cache.Add(cacheKey(rec.OwnerID, rec.ID), rec)
}

// Delete удаляет запись из кэша (инвалидация при мутации).
func (c *CacheService) Delete(ownerID, id string) {
	c.cache.Remove(cacheKey(ownerID, id))
}
