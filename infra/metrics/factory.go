package metrics

import (
	"github.com/kilianp07/lsp/core/factory"
	coremetrics "github.com/kilianp07/lsp/core/metrics"
	"github.com/kilianp07/lsp/infra/logger"
)

var log = logger.New("metrics")

type influxConf struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func init() {
	must(coremetrics.RegisterMetricsSink("nop", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, factory.Decode(conf, &struct{}{})
	}))
	must(coremetrics.RegisterMetricsSink("prometheus", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		if err := factory.Decode(conf, &struct{}{}); err != nil {
			return nil, err
		}
		return NewPromSink()
	}))
	must(coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c influxConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	}))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
