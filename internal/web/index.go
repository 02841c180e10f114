package web

// Single-page dashboard: chips, holdings, transactions and the market list,
// fed by the JSON API and the valuation SSE stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Chiptrader</title>
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --ink-soft:#9c9c9c;
      --panel:#f6f6f6;
      --up:#1a7f37;
      --down:#b42318;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1100px, 96vw);
      margin:0 auto;
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
    }
    h1 { font-size:1rem; text-transform:uppercase; letter-spacing:.2em; }
    .banner {
      display:none;
      border:2px dashed var(--ink-mid);
      color:var(--ink-mid);
      padding:.5rem 1rem;
      margin-bottom:1rem;
      font-size:.75rem;
    }
    .banner.visible { display:block; }
    .chips { font-size:1.4rem; margin:1rem 0; }
    table { width:100%; border-collapse:collapse; font-size:.8rem; }
    th, td { text-align:left; padding:.4rem .6rem; border-bottom:1px solid rgba(0,0,0,.1); }
    .positive { color:var(--up); }
    .negative { color:var(--down); }
    section { margin-top:2rem; }
    form { display:flex; gap:.5rem; margin-top:1rem; flex-wrap:wrap; }
    input, select, button {
      font-family:inherit;
      border:2px solid var(--ink);
      padding:.4rem .6rem;
      background:#fff;
    }
    button { cursor:pointer; }
    #trade-error { color:var(--down); font-size:.75rem; }
  </style>
</head>
<body>
  <div id="app">
    <h1>Chiptrader</h1>
    <div id="stale-banner" class="banner">Market data delayed, showing cached values</div>
    <div class="chips">Chips: <span id="chips">—</span></div>
    <section>
      <h2>Portfolio</h2>
      <table>
        <thead><tr><th>Coin</th><th>Amount</th><th>Entry</th><th>Price</th><th>Value</th><th>P/L</th><th>P/L %</th><th>RSI</th><th>EMA</th></tr></thead>
        <tbody id="holdings"></tbody>
      </table>
      <div>Total: <span id="total-value">0</span> | Profit: <span id="total-profit">0</span> (<span id="total-profit-pct">0</span>%)</div>
    </section>
    <section>
      <h2>Trade</h2>
      <form id="trade-form">
        <input id="trade-coin" placeholder="coin id, e.g. bitcoin" required />
        <input id="trade-amount" placeholder="amount" required />
        <select id="trade-side"><option value="buy">Buy</option><option value="sell">Sell</option></select>
        <button type="submit">Execute</button>
      </form>
      <div id="trade-error"></div>
    </section>
    <section>
      <h2>Market</h2>
      <table>
        <thead><tr><th>Coin</th><th>Price</th><th>24h %</th><th>Market Cap</th></tr></thead>
        <tbody id="market"></tbody>
      </table>
    </section>
    <section>
      <h2>Transactions</h2>
      <table>
        <thead><tr><th>Time</th><th>Side</th><th>Coin</th><th>Amount</th><th>Price</th><th>Total</th><th>Profit</th></tr></thead>
        <tbody id="transactions"></tbody>
      </table>
    </section>
    <section>
      <h2>News</h2>
      <ul id="news"></ul>
    </section>
  </div>
  <script>
    const fmt = (v) => Number(v).toLocaleString(undefined, {maximumFractionDigits: 2});
    const pnlClass = (v) => Number(v) >= 0 ? 'positive' : 'negative';

    function renderValuation(v) {
      document.getElementById('stale-banner').classList.toggle('visible', v.stale);
      document.getElementById('total-value').textContent = fmt(v.total_value);
      document.getElementById('total-profit').textContent = fmt(v.total_profit);
      document.getElementById('total-profit-pct').textContent = fmt(v.total_profit_percent);
      const rows = (v.holdings || []).map(h =>
        '<tr><td>' + h.symbol + '</td><td>' + fmt(h.amount) + '</td><td>' + fmt(h.entry_price) +
        '</td><td>' + fmt(h.price) + '</td><td>' + fmt(h.value) +
        '</td><td class="' + pnlClass(h.profit) + '">' + fmt(h.profit) +
        '</td><td class="' + pnlClass(h.profit) + '">' + fmt(h.profit_percent) +
        '</td><td>' + (h.momentum ? fmt(h.momentum) : '—') +
        '</td><td>' + (h.trend ? fmt(h.trend) : '—') + '</td></tr>');
      document.getElementById('holdings').innerHTML = rows.join('');
    }

    async function refresh() {
      const res = await fetch('/api/portfolio');
      const data = await res.json();
      document.getElementById('chips').textContent = fmt(data.chips);
      renderValuation(data.valuation);

      const txRes = await fetch('/api/transactions');
      const txData = await txRes.json();
      document.getElementById('transactions').innerHTML = (txData.transactions || []).map(t =>
        '<tr><td>' + new Date(t.created_at).toLocaleString() + '</td><td>' + t.kind +
        '</td><td>' + t.symbol + '</td><td>' + fmt(t.amount) + '</td><td>' + fmt(t.price) +
        '</td><td>' + fmt(t.total_value) + '</td><td class="' + pnlClass(t.profit) + '">' +
        fmt(t.profit) + '</td></tr>').join('');
    }

    async function loadMarket() {
      const res = await fetch('/api/market?per_page=50');
      const data = await res.json();
      document.getElementById('stale-banner').classList.toggle('visible', data.stale);
      document.getElementById('market').innerHTML = (data.coins || []).map(c =>
        '<tr><td>' + c.symbol + '</td><td>' + fmt(c.price) +
        '</td><td class="' + pnlClass(c.change) + '">' + fmt(c.change) +
        '</td><td>' + fmt(c.market_cap) + '</td></tr>').join('');
    }

    async function loadNews() {
      const res = await fetch('/api/news');
      const data = await res.json();
      document.getElementById('news').innerHTML = (data.news || []).map(n =>
        '<li><a href="' + n.url + '" target="_blank" rel="noopener">' + n.title + '</a> — ' + n.source + '</li>').join('');
    }

    document.getElementById('trade-form').addEventListener('submit', async (e) => {
      e.preventDefault();
      document.getElementById('trade-error').textContent = '';
      const res = await fetch('/api/trade', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify({
          side: document.getElementById('trade-side').value,
          coin_id: document.getElementById('trade-coin').value.trim().toLowerCase(),
          amount: document.getElementById('trade-amount').value.trim(),
        }),
      });
      const data = await res.json();
      if (!res.ok) {
        document.getElementById('trade-error').textContent = data.error || 'trade failed';
        return;
      }
      refresh();
    });

    const stream = new EventSource('/portfolio/stream');
    stream.addEventListener('valuation', (e) => renderValuation(JSON.parse(e.data)));

    refresh();
    loadMarket();
    loadNews();
    setInterval(loadMarket, 60000);
  </script>
</body>
</html>
`
