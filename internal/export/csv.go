// Package export flattens orders into the shop's CSV import format: one
// header row and one data row per (order, item) pair.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"expo-orders/internal/model"

	"github.com/google/uuid"
)

// Column headers match the shop system's import template.
var Columns = []string{
	"ショップ受注番号",
	"受注日時",
	"注文者名",
	"注文者郵便番号",
	"注文者住所",
	"注文者電話番号",
	"支払方法",
	"配送先名",
	"配送先郵便番号",
	"配送先住所",
	"配送先電話番号",
	"配送方法名",
	"指定日",
	"配送時間名",
	"商品コード",
	"商品名",
	"数量",
}

// Fixed values for the booth: every order is prepaid and ships with Yamato.
const (
	paymentMethod = "前払い"
	carrierName   = "ヤマト運輸"
)

const timestampFormat = "2006/01/02 15:04"

// Select returns the orders whose id is in ids, preserving input order. An
// empty selection means all orders; unknown ids are ignored.
func Select(orders []model.Order, ids []uuid.UUID) []model.Order {
	if len(ids) == 0 {
		return orders
	}

	selected := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	out := make([]model.Order, 0, len(ids))
	for _, o := range orders {
		if selected[o.ID] {
			out = append(out, o)
		}
	}
	return out
}

// Rows flattens orders into data rows, one per (order, item) pair. An order
// with no items contributes no rows; header fields are never emitted without
// an item. Timestamps are rendered in loc.
func Rows(orders []model.Order, loc *time.Location) [][]string {
	var rows [][]string
	for _, o := range orders {
		createdAt := o.CreatedAt.In(loc).Format(timestampFormat)
		for _, item := range o.Items {
			rows = append(rows, []string{
				o.OrderNumber,
				createdAt,
				o.Name,
				o.PostalCode,
				o.Address,
				o.Phone,
				paymentMethod,
				o.ReceiverName,
				o.ReceiverPostalCode,
				o.ReceiverAddress,
				o.ReceiverPhone,
				carrierName,
				o.DeliveryDate,
				o.DeliveryTime,
				item.Code,
				item.Name,
				strconv.Itoa(item.Quantity),
			})
		}
	}
	return rows
}

// WriteCSV writes the header row and the flattened data rows for orders to w.
func WriteCSV(w io.Writer, orders []model.Order, loc *time.Location) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, row := range Rows(orders, loc) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
