package sqlinline

const QInsertTransaction = `--sql 2bec3ee6-4413-4bf9-a82c-372dc5062679
insert into transactions (id, account_key, order_id, package_id, amount_cents, credits, status, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::integer, $6::integer, 'pending', $7::timestamptz);
`

// QSettleTransaction flips a pending transaction to completed and adds its
// credits to the account in the same statement. It returns no row for unknown
// or already completed orders. The account normally exists already because
// the order was opened against it.
const QSettleTransaction = `--sql a6acae50-35a2-4acf-a1d5-71958d3ba45f
with done as (
    update transactions
    set status = 'completed',
        completed_at = now()
    where order_id = $1::text
      and status = 'pending'
    returning id, account_key, order_id, package_id, amount_cents, credits, status, created_at, completed_at
), credited as (
    insert into accounts (account_key, credits, created_at, updated_at)
    select account_key, credits, now(), now() from done
    on conflict (account_key) do update
    set credits = accounts.credits + excluded.credits,
        updated_at = now()
    returning credits
)
select done.id::text, done.account_key, done.order_id, done.package_id, done.amount_cents,
       done.credits, done.status, done.created_at, done.completed_at, credited.credits
from done
cross join credited;
`

const QSelectTransactionStatus = `--sql b94c699c-d89e-4a2a-a0fd-075209feb891
select status
from transactions
where order_id = $1::text;
`
