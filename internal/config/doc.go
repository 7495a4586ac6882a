// Package config provides configuration parsing for the tx command.
//
// The configuration is stored in tx.json (or tx.toml) in the working
// directory. Every field is optional.
//
// # Configuration File Structure
//
//	{
//	  "baseURL": "http://localhost:8080",
//	  "handlerPrefix": "/tx/",
//	  "transport": "ws",
//	  "wsPath": "/tx/ws",
//	  "exchangeTimeout": "5s",
//	  "logLevel": "debug",
//	  "snapshot": {
//	    "store": "redis",
//	    "key": "todo",
//	    "redisAddr": "localhost:6379"
//	  },
//	  "serve": {
//	    "addr": ":8080"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromDir(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	e, err := engine.Load(ctx, url, cfg.ToEngineOptions(u)...)
package config
