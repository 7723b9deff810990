// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

/*
Package supervisor runs the long-lived schedule mode under suture v4.

The tree has two layers so that a crashing status server never interrupts
mirroring and a stuck pass never takes the status endpoints down:

	Root ("docmirror")
	├── Pipeline ("pipeline-layer")
	│   └── PassService (ticker + circuit breaker)
	└── API ("api-layer")
	    └── HTTPServerService (if schedule.http_addr is set)

Supervisor events are logged through sutureslog bridged onto zerolog:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(services.NewPassService(runner, interval, cb))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)

Services live in the services subpackage.
*/
package supervisor
