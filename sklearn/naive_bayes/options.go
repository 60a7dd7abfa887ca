package naive_bayes

import (
	"github.com/YuminosukeSato/catnb/pkg/log"
)

// settings は Trainer と Classifier が共通で受け取る設定
type settings struct {
	config            Config
	logger            log.Logger
	workers           int
	parallelThreshold int
}

func defaultSettings(component string) settings {
	return settings{
		config:            DefaultConfig(),
		logger:            log.GetLoggerWithName(component),
		workers:           0, // runtime.NumCPU()
		parallelThreshold: DefaultParallelThreshold,
	}
}

// Option は Trainer / Classifier の設定オプション
type Option func(*settings)

// WithLaplaceAlpha は平滑化定数 α を設定
func WithLaplaceAlpha(alpha float64) Option {
	return func(s *settings) {
		s.config.LaplaceAlpha = alpha
	}
}

// WithUnseenProbability は未知値に使う確率を設定
func WithUnseenProbability(p float64) Option {
	return func(s *settings) {
		s.config.UnseenProbability = p
	}
}

// WithConfig は Config をまとめて設定
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

// WithLogger はロガーを差し替える（主にテスト用）
func WithLogger(logger log.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkers はバッチ分類の goroutine 数を設定（0 以下で CPU 数）
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

// WithParallelThreshold は並列化を始める行数を設定（負の値で常に逐次処理）
func WithParallelThreshold(n int) Option {
	return func(s *settings) {
		s.parallelThreshold = n
	}
}
