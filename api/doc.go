// Package api provides the HTTP REST surface of the navigation service.
//
// Endpoints:
//
// Navigation:
//   - GET  /api/status - Controller status and engine snapshot
//   - POST /api/navigation/start - Acquire the active target and start driving
//   - POST /api/navigation/stop - Halt autonomous navigation
//   - POST /api/agent/move - Manual one-cell move, body {"direction": "right"}
//
// Map:
//   - GET /api/grid - Dimensions and rendered rows
//   - GET /api/grid/cells/{row}/{col} - Cell state and POI id
//   - GET /api/pois - POI registry
//   - GET /api/route?from=r,c&to=r,c - Shortest route; from defaults to the
//     agent, to may also be a POI id. Wall endpoints answer 409.
//
// History:
//   - GET /api/history?page=&limit=&order=&trip=&kind= - Journal page
//
// Dispatch:
//   - GET/PUT/DELETE /available and /api/dispatch - Active station board
//
// Transports:
//   - GET  /ws - Telemetry websocket
//   - POST /mcp - MCP JSON-RPC endpoint
//
// Errors are returned as JSON with an appropriate status code:
//
//	{"error": "cell is a wall: (0,2)"}
//
// Operations on a stopped controller return 503.
package api
