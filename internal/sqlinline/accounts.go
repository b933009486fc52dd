package sqlinline

// QEnsureAccount inserts the account with the onboarding grant if missing and
// returns the current balance either way. A statement that loses a concurrent
// insert for the same key returns no row, because its select branch runs on
// the snapshot taken before the winner committed; callers follow up with
// QSelectAccountCredits.
const QEnsureAccount = `--sql 72c2dfae-ba24-4785-9b1b-8d8d10c296c4
with inserted as (
    insert into accounts (account_key, credits, created_at, updated_at)
    values ($1::text, $2::integer, now(), now())
    on conflict (account_key) do nothing
    returning credits
)
select credits from inserted
union all
select credits from accounts where account_key = $1::text
limit 1;
`

const QSelectAccountCredits = `--sql 0d6f3f7e-5c0b-4a51-9a8e-2f4b7c1d9e63
select credits
from accounts
where account_key = $1::text;
`

// QDecrementCredits returns no row when the balance is already zero.
const QDecrementCredits = `--sql 5b8ccd0b-3ebb-4f73-80d3-b4a8ae4f9908
update accounts
set credits = credits - 1,
    updated_at = now()
where account_key = $1::text
  and credits > 0
returning credits;
`

const QIncrementCredits = `--sql e5a189ad-fa0d-4305-8a4f-73997f0f349c
update accounts
set credits = credits + $2::integer,
    updated_at = now()
where account_key = $1::text
returning credits;
`
