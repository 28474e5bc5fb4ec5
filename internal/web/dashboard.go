package web

import "github.com/gofiber/fiber/v2"

// handleDashboard serves a small inline status page that polls
// /api/stats and renders a live-updating table. There is no separate
// frontend build: mini-lop's TUI is the primary interface, and this
// page exists only so a run can be checked from a browser.
func (s *Server) handleDashboard(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(dashboardHTML)
}

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>mini-lop</title>
<style>
  body { background: #0d0d0d; color: #e0e0e0; font-family: monospace; padding: 2rem; }
  h1 { color: #00ffff; }
  table { border-collapse: collapse; }
  td { padding: 0.25rem 1rem; }
  td.label { color: #666; }
  td.value { color: #fff; font-weight: bold; }
  .crash { color: #ff0055; }
</style>
</head>
<body>
<h1>&#9889; mini-lop</h1>
<table id="stats"></table>
<script>
function render(s) {
  const rows = [
    ["Executions", s.executions],
    ["Execs/sec", s.execs_per_sec && s.execs_per_sec.toFixed(1)],
    ["Cycle", s.cycle],
    ["Seeds", s.seeds],
    ["Edges covered", s.edges_covered],
    ["Crashes", s.crashes],
    ["Timeouts", s.timeouts],
    ["Havoc uses", s.havoc_uses],
    ["Splice uses", s.splice_uses],
  ];
  const table = document.getElementById("stats");
  table.innerHTML = rows.map(([label, value]) => {
    const cls = label === "Crashes" && value > 0 ? "crash" : "value";
    return "<tr><td class=\"label\">" + label + "</td><td class=\"" + cls + "\">" + value + "</td></tr>";
  }).join("");
}

async function poll() {
  try {
    const resp = await fetch("/api/stats");
    render(await resp.json());
  } catch (e) {
    // server not reachable yet; keep trying
  }
}

poll();
setInterval(poll, 1000);
</script>
</body>
</html>
`
