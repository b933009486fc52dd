package sqlinline

const QInsertIcon = `--sql e205ed43-e892-4c2b-982d-590a5192d78e
insert into icons (id, account_key, prompt, storage_key, mime, size_bytes, favorite, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::bigint, false, $7::timestamptz);
`

const QListIconsByAccount = `--sql b6091444-34ff-4b25-8420-63bc945128ab
select id::text, account_key, prompt, storage_key, mime, size_bytes, favorite, created_at
from icons
where account_key = $1::text
order by created_at desc, id desc
limit $2::integer;
`

const QSelectIcon = `--sql ffddaacc-b967-4046-9967-da56ebcdfd12
select id::text, account_key, prompt, storage_key, mime, size_bytes, favorite, created_at
from icons
where id = $1::uuid
  and account_key = $2::text;
`

const QDeleteIcon = `--sql d9af29ee-5391-4928-9834-ed3907271f19
delete from icons
where id = $1::uuid
  and account_key = $2::text
returning storage_key;
`

const QSetIconFavorite = `--sql 1f74459d-78f7-41d2-90da-eaf39aaa5ece
update icons
set favorite = $3::boolean
where id = $1::uuid
  and account_key = $2::text;
`
