// Package mcp exposes the navigation service as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool calls the REST API and formats the
// JSON answer as text for the agent.
//
// MCP Tools:
//   - nav_status: Mode, target, agent cell and remaining route
//   - start_navigation: Acquire the dispatched station and start driving
//   - stop_navigation: Halt autonomous navigation
//   - move_agent: Manual one-cell move
//   - plan_route: Shortest route between two cells or to a POI
//   - list_pois: POI registry
//   - describe_cell: State of one grid cell
//   - show_grid: Rendered occupancy grid
//   - navigation_history: Journal page, optionally for one trip
//   - dispatch_station: Set or clear the dispatched station
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the Client is an http.Handler for POST /mcp
package mcp
