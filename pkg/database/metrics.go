package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolMetric describes one exported pgxpool statistic.
type poolMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(*pgxpool.Stat) float64
}

// PoolStatsCollector implements prometheus.Collector for pgxpool connection metrics.
type PoolStatsCollector struct {
	stat    func() *pgxpool.Stat
	service string
	metrics []poolMetric
}

// NewPoolStatsCollector creates a collector exporting pool statistics of pool.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	var stat func() *pgxpool.Stat
	if pool != nil {
		stat = pool.Stat
	}
	return newPoolStatsCollector(stat, service)
}

func newPoolStatsCollector(stat func() *pgxpool.Stat, service string) *PoolStatsCollector {
	labels := []string{"service"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, labels, nil)
	}

	return &PoolStatsCollector{
		stat:    stat,
		service: service,
		metrics: []poolMetric{
			{
				desc:      desc("db_pool_acquired_connections", "Number of currently acquired connections"),
				valueType: prometheus.GaugeValue,
				value:     func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) },
			},
			{
				desc:      desc("db_pool_idle_connections", "Number of currently idle connections"),
				valueType: prometheus.GaugeValue,
				value:     func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) },
			},
			{
				desc:      desc("db_pool_total_connections", "Total number of connections in the pool"),
				valueType: prometheus.GaugeValue,
				value:     func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) },
			},
			{
				desc:      desc("db_pool_max_connections", "Maximum number of connections allowed"),
				valueType: prometheus.GaugeValue,
				value:     func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) },
			},
			{
				desc:      desc("db_pool_acquire_count_total", "Total number of connection acquires"),
				valueType: prometheus.CounterValue,
				value:     func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) },
			},
			{
				desc:      desc("db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections in seconds"),
				valueType: prometheus.CounterValue,
				value:     func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() },
			},
			{
				desc:      desc("db_pool_empty_acquire_count_total", "Total number of acquires that had to wait for a connection"),
				valueType: prometheus.CounterValue,
				value:     func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) },
			},
			{
				desc:      desc("db_pool_canceled_acquire_count_total", "Total number of canceled connection acquires"),
				valueType: prometheus.CounterValue,
				value:     func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) },
			},
		},
	}
}

// Describe sends the descriptors of all metrics to the provided channel.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect reads current pool statistics and sends them as Prometheus metrics.
// A collector without a pool emits nothing.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.stat == nil {
		return
	}
	stat := c.stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(stat), c.service)
	}
}

// RegisterPoolMetrics registers a pool collector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	return reg.Register(NewPoolStatsCollector(pool, service))
}
