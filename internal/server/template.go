package server

// indexHTML is the single-page query form. Server-rendered; the view
// models in server.go do all formatting so the template stays logic-free.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width,initial-scale=1">
  <title>bidsage — auction price recommender</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Arial; background:#f0f2f5; color:#111; margin:0; padding:2rem; }
    .container { max-width: 960px; margin:auto; background:#fff; padding:2rem; border-radius:10px; box-shadow:0 6px 20px rgba(0,0,0,0.06); }
    h1 { color:#1877f2; margin-top:0; border-bottom:1px solid #ddd; padding-bottom:0.5rem; }
    .form-grid { display:grid; grid-template-columns:1fr 1fr 1fr; gap:1rem; align-items:center; margin-bottom:1rem; }
    .species-input { grid-column:1 / -1; }
    .iv-grid { display:grid; grid-template-columns:repeat(6, 1fr); gap:0.5rem; grid-column:1 / -1; }
    .iv-grid input { text-align:center; }
    input, select { width:100%; padding:10px; border-radius:6px; border:1px solid #e0e3e8; box-sizing:border-box; font-size:1rem; }
    button { grid-column:1 / -1; padding:12px 16px; background:#1877f2; color:#fff; border:none; border-radius:8px; cursor:pointer; font-weight:600; font-size:1.1rem; }
    .recommendation { background:#eaf5ff; border:1px solid #d0eaff; border-radius:8px; padding:1rem; text-align:center; margin-bottom:1rem; }
    .price { font-size:1.8rem; font-weight:700; color:#0a58d6; }
    .sale-list { list-style:none; padding:0; margin:0; }
    .sale-item { display:flex; justify-content:space-between; gap:1rem; padding:0.75rem; border-radius:8px; background:#fafafa; border:1px solid #eee; margin-bottom:0.6rem; align-items:center; }
    .ivs { color:#555; display:block; font-size:0.85rem; }
    .trend { font-size:0.9rem; color:#444; margin-top:0.5rem; }
  </style>
</head>
<body>
  <div class="container">
    <h1>bidsage</h1>
    <form method="post">
      <div class="form-grid">
        <input class="species-input" type="text" name="species" placeholder="Enter Pokémon name..." value="{{ .Form.Species }}" required>
        <select name="shiny">
          <option value="any" {{ if eq .Form.Shiny "any" }}selected{{ end }}>Any Shiny Status</option>
          <option value="yes" {{ if eq .Form.Shiny "yes" }}selected{{ end }}>Shiny Only</option>
          <option value="no" {{ if eq .Form.Shiny "no" }}selected{{ end }}>Non-Shiny Only</option>
        </select>
        <select name="gender">
          <option value="any" {{ if eq .Form.Gender "any" }}selected{{ end }}>Any Gender</option>
          <option value="Male" {{ if eq .Form.Gender "Male" }}selected{{ end }}>Male</option>
          <option value="Female" {{ if eq .Form.Gender "Female" }}selected{{ end }}>Female</option>
        </select>
        <input type="number" step="0.01" name="min_iv_total" placeholder="Min Total IV %" value="{{ .Form.MinIVTotal }}">

        <div class="iv-grid">
          <input type="number" name="iv_hp" min="0" max="31" placeholder="HP" value="{{ .Form.IVHP }}">
          <input type="number" name="iv_atk" min="0" max="31" placeholder="Atk" value="{{ .Form.IVAtk }}">
          <input type="number" name="iv_def" min="0" max="31" placeholder="Def" value="{{ .Form.IVDef }}">
          <input type="number" name="iv_spatk" min="0" max="31" placeholder="SpA" value="{{ .Form.IVSpAtk }}">
          <input type="number" name="iv_spdef" min="0" max="31" placeholder="SpD" value="{{ .Form.IVSpDef }}">
          <input type="number" name="iv_speed" min="0" max="31" placeholder="Spe" value="{{ .Form.IVSpeed }}">
        </div>

        <button type="submit">Get Price Recommendation</button>
      </div>
    </form>

    {{ if .Submitted }}
      {{ if .Success }}
        <div class="recommendation">
          <h2>Recommended Price Range</h2>
          <p>Based on {{ .Count }} cleaned past sales ({{ .Total }} total examined).</p>
          <div class="price">{{ .Conservative }} - {{ .Aggressive }}</div>
          <p>Median: {{ .Median }} | Stdev: {{ .Stdev }}</p>
          {{ if ne .Trend.Direction "flat" }}
            <div class="trend">Trend: {{ .Trend.Direction }} (slope={{ .Trend.Slope }}, pct={{ .Trend.TrendPct }})</div>
          {{ end }}
        </div>
      {{ else }}
        <div class="recommendation"><h3>{{ .Message }}</h3></div>
      {{ end }}

      {{ if .Sales }}
        <h3>Past Sales (Highest Price First)</h3>
        <ul class="sale-list">
          {{ range .Sales }}
            <li class="sale-item">
              <div>
                {{ if .Shiny }}✨{{ end }} <strong>{{ .Species }}</strong>
                (Lvl {{ .Level }}, {{ .IVTotal }} IV)
                <small class="ivs">IVs: {{ .IVLine }}</small>
              </div>
              <div><strong>{{ .Bid }}</strong></div>
            </li>
          {{ end }}
        </ul>
      {{ end }}
    {{ end }}
  </div>
</body>
</html>
`
