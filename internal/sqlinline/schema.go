package sqlinline

// SchemaStatements create the tables used by the Postgres stores. Each entry is
// idempotent and runs on its own.
var SchemaStatements = []string{
	QCreateAccounts,
	QCreateIcons,
	QCreateIconsAccountIndex,
	QCreateTransactions,
	QCreateUsageEvents,
	QCreateIntegrationTokens,
}

const QCreateAccounts = `--sql b556e0d8-b773-4217-881c-c6f6cdaa4533
create table if not exists accounts (
    account_key text primary key,
    credits integer not null default 0 check (credits >= 0),
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QCreateIcons = `--sql 353661da-9a62-4562-901b-cf814a781161
create table if not exists icons (
    id uuid primary key,
    account_key text not null,
    prompt text not null,
    storage_key text not null,
    mime text not null default 'image/png',
    size_bytes bigint not null default 0,
    favorite boolean not null default false,
    created_at timestamptz not null default now()
);
`

const QCreateIconsAccountIndex = `--sql 595736bd-e629-4e54-9777-567a51d52d74
create index if not exists icons_account_created_idx on icons (account_key, created_at desc);
`

const QCreateTransactions = `--sql 8c3d0307-18b7-4c7a-b4cc-a1b636e8626f
create table if not exists transactions (
    id uuid primary key,
    account_key text not null,
    order_id text not null unique,
    package_id text not null,
    amount_cents integer not null,
    credits integer not null,
    status text not null default 'pending',
    created_at timestamptz not null default now(),
    completed_at timestamptz
);
`

const QCreateUsageEvents = `--sql 6c82c89e-1bea-4f8f-8c7b-e2ba9738f62c
create table if not exists usage_events (
    id bigserial primary key,
    account_key text not null,
    prompt text not null,
    provider text not null,
    country text not null default '',
    latency_ms bigint not null default 0,
    created_at timestamptz not null default now()
);
`

const QCreateIntegrationTokens = `--sql d300bd7d-6bd7-4f87-93e2-de052025ebb5
create table if not exists integration_tokens (
    id uuid primary key,
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`
