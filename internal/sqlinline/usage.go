package sqlinline

const QInsertUsageEvent = `--sql 462a26a3-51d3-45c6-b921-e065fa300b96
insert into usage_events (account_key, prompt, provider, country, latency_ms, created_at)
values ($1::text, $2::text, $3::text, $4::text, $5::bigint, $6::timestamptz);
`
