package sqlinline

const QInsertImage = `--sql 2f6a8d31-4c7e-4b09-9e2d-6a1c5f3b7e80
insert into images (id, user_id, url, image_type, file_size, width, height, mime, storage_key, created_at)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::bigint, $6::int, $7::int, $8::text, $9::text, $10::timestamptz);
`

const QSelectImageByID = `--sql 9b3e7c15-2a4d-4f81-b6e0-8d5c1a2f4e93
select id::text, user_id::text, url, image_type, file_size, width, height, mime, storage_key, created_at
from images
where id = $1::uuid
limit 1;
`

const QListImages = `--sql 4d8f2a61-7e3b-4c95-a0d2-1f6b9e8c3a57
select id::text, user_id::text, url, image_type, file_size, width, height, mime, storage_key, created_at,
       count(*) over () as total
from images
where user_id = $1::uuid
  and ($2::text = '' or image_type = $2::text)
order by created_at desc, id desc
limit $3::int offset $4::int;
`

const QCountImagesByType = `--sql 6e1c9f47-3b2a-4d08-8f5e-2c7a4b9d1e06
select count(*)
from images
where user_id = $1::uuid
  and ($2::text = '' or image_type = $2::text);
`

const QDeleteImage = `--sql 8a5d3e92-6f1b-4c27-9d4e-0b7f2c6a1d38
delete from images
where id = $1::uuid and user_id = $2::uuid;
`
