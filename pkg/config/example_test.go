package config_test

import (
	"fmt"
	"log"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/schemagit/pkg/config"
)

// ExampleLoad demonstrates building a run configuration from defaults and
// explicitly set values.
func ExampleLoad() {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("output.directory", "/srv/schema")
	v.Set("connection.host", "db01:1522")
	v.Set("connection.schema", "HR")

	cfg, err := config.Load(v)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Dialect)
	fmt.Println(cfg.Performance.StaggerDelay)
	fmt.Println(cfg.Connection.Timeout)

	// Output:
	// oracle
	// 1s
	// 30s
}

// ExampleSplitHostPort shows how the hostname argument is interpreted.
func ExampleSplitHostPort() {
	host, port, _ := config.SplitHostPort("db01:1522", 1521)
	fmt.Println(host, port)

	host, port, _ = config.SplitHostPort("db01", 1521)
	fmt.Println(host, port)

	// Output:
	// db01 1522
	// db01 1521
}
