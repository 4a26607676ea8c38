package sqlinline

const QInsertGeneration = `--sql 3c7b1e58-9d2f-4a64-8e0b-5f4a2d6c9b71
insert into generations (id, user_id, user_photo_id, clothing_photo_id, status, error_message, created_at, updated_at)
values ($1::text, $2::uuid, $3::uuid, $4::uuid, $5::text, '', $6::timestamptz, $6::timestamptz);
`

// generationSelect joins the three image slots onto a generation row.
const generationSelect = `
select g.id::text, g.user_id::text, g.status, g.error_message, g.created_at, g.updated_at,
       up.id::text, up.url, up.image_type, up.file_size, up.width, up.height, up.mime, up.storage_key, up.created_at,
       cp.id::text, cp.url, cp.image_type, cp.file_size, cp.width, cp.height, cp.mime, cp.storage_key, cp.created_at,
       ri.id::text, ri.url, ri.image_type, ri.file_size, ri.width, ri.height, ri.mime, ri.storage_key, ri.created_at
from generations g
join images up on up.id = g.user_photo_id
join images cp on cp.id = g.clothing_photo_id
left join images ri on ri.id = g.result_image_id
`

const QSelectGenerationByID = `--sql e4a9c2d7-1b6f-4e83-9a05-7c3d8f1b2e64` + generationSelect + `where g.id = $1::text
limit 1;
`

const QListGenerationsByUser = `--sql 0f2d6b94-8c3e-4a71-b5d9-3e8a1c7f4b26` + generationSelect + `where g.user_id = $1::uuid
order by g.created_at desc, g.id desc
limit $2::int offset $3::int;
`

const QCountGenerationsByUser = `--sql 5b8e3a16-2d7c-4f90-a4e1-9c6b0d3f7a82
select count(*)
from generations
where user_id = $1::uuid;
`

// QUpdateGenerationStatus only moves rows whose current status accepts the
// requested one; zero affected rows means the transition was refused.
const QUpdateGenerationStatus = `--sql a1d7f3c9-6e2b-4b58-8d04-2f9e5c7a1b63
update generations
set status = $2::text,
    result_image_id = coalesce($3::uuid, result_image_id),
    error_message = $4::text,
    updated_at = now()
where id = $1::text
  and status = any($5::text[]);
`

const QPendingGenerations = `--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db
select id::text
from generations
where status = 'pending'
order by created_at asc
limit $1::int;
`

const QStaleGenerations = `--sql 9e2c7d41-3a8b-4f6e-b1d5-6c0a4e8f2b97
select id::text
from generations
where status = 'processing'
  and updated_at < $1::timestamptz
order by updated_at asc
limit $2::int;
`
