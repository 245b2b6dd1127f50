// Package sqlgen turns natural-language analytic requests into vetted,
// executable SQL through a bounded LLM retry loop.
package sqlgen

// SchemaDescriptor describes the queryable tables for prompt construction.
// It is compiled in and immutable for the process lifetime.
const SchemaDescriptor = `Схема myaso (PostgreSQL):

products — каталог товаров:
  id            bigint, первичный ключ
  title         text, название товара
  supplier_name text, поставщик
  category      text, категория (говядина, свинина, курица, ...)
  price         numeric, цена за единицу, руб
  unit          text, единица измерения (кг, шт, коробка)
  in_stock      boolean, есть ли на складе
  photo         text, URL фотографии (может быть NULL)
  embedding     vector, служебная колонка семантического поиска
  updated_at    timestamptz, дата последнего изменения цены

orders — заказы клиентов:
  id            bigint, первичный ключ
  client_phone  text, телефон клиента, ссылается на clients.phone
  product_id    bigint, ссылается на products.id
  quantity      numeric, количество
  total         numeric, сумма заказа, руб
  created_at    timestamptz, дата заказа

clients — профили клиентов:
  phone         text, первичный ключ, телефон
  name          text, название организации
  city          text, город доставки
  created_at    timestamptz

system — системные переменные:
  key           text, первичный ключ
  value         text`
