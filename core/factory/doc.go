// Package factory instantiates pluggable modules, such as metrics sinks,
// from configuration. A module is named by a type string and carries a map
// of raw settings that its factory decodes into a typed struct:
//
//	sinks := factory.NewRegistry[metrics.MetricsSink]()
//	sinks.MustRegister("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInflux(c.URL), nil
//	})
//	s, err := sinks.Create(factory.ModuleConfig{Type: "influx", Conf: map[string]any{"url": "http://db:8086"}})
package factory
