package sqlinline

const QInsertUser = `--sql 7c1e4b2a-90d3-4f6e-8a51-3b2d9c0e6f14
insert into users (id, email, full_name, avatar_url, password_hash, created_at)
values ($1::uuid, lower($2::text), $3::text, nullif($4::text, ''), $5::bytea, $6::timestamptz)
on conflict (email) do nothing
returning id;
`

const QSelectUserByID = `--sql 1239018e-4f5f-46a0-8f0d-81b2a3a5f0f8
select id::text, email, full_name, coalesce(avatar_url, ''), password_hash, created_at
from users
where id = $1::uuid
limit 1;
`

const QSelectUserByEmail = `--sql 5a82e2ad-7b09-40c5-9d22-2d28db58c0f0
select id::text, email, full_name, coalesce(avatar_url, ''), password_hash, created_at
from users
where email = lower($1::text)
limit 1;
`
