package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/model"
)

// printJSON writes v indented. Used for --json and for single records.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows through a tabwriter unless --json is set, in which case
// raw is printed instead.
func (a *app) table(raw any, header string, rows func(w *tabwriter.Writer)) error {
	if a.jsonOutput {
		return a.printJSON(raw)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

func (a *app) printProducts(products []model.Product) error {
	return a.table(products, "ID\tNAME\tPRICE\tFEATURED\tACTIVE", func(w *tabwriter.Writer) {
		for _, p := range products {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n", p.ID, p.Name, p.Price.StringFixed(2), p.Featured, p.Active)
		}
	})
}

func (a *app) printCategories(categories []model.Category) error {
	return a.table(categories, "ID\tNAME\tDESCRIPTION", func(w *tabwriter.Writer) {
		for _, c := range categories {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
		}
	})
}

func (a *app) printCart(items []model.CartItem) error {
	return a.table(items, "ITEM\tPRODUCT\tQTY\tPRICE\tSUBTOTAL", func(w *tabwriter.Writer) {
		total := decimal.Zero
		for _, it := range items {
			sub := it.LineTotal()
			total = total.Add(sub)
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				it.ID, it.Product.Name, it.Quantity, it.Product.Price.StringFixed(2), sub.StringFixed(2))
		}
		fmt.Fprintf(w, "\t\t\tTOTAL\t%s\n", total.StringFixed(2))
	})
}

func (a *app) printOrders(orders []model.Order) error {
	return a.table(orders, "ID\tSTATUS\tITEMS\tTOTAL\tPLACED", func(w *tabwriter.Writer) {
		for _, o := range orders {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				o.ID, o.Status, len(o.Items), o.Total.StringFixed(2), o.CreatedAt.Local().Format(time.DateTime))
		}
	})
}

func (a *app) printUsers(users []model.User) error {
	return a.table(users, "ID\tEMAIL\tNAME\tADMIN", func(w *tabwriter.Writer) {
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%t\n", u.ID, u.Email, u.FirstName, u.LastName, u.IsAdmin)
		}
	})
}

func (a *app) printMessages(msgs []model.ContactMessage) error {
	return a.table(msgs, "ID\tFROM\tSUBJECT\tSTATUS\tRECEIVED", func(w *tabwriter.Writer) {
		for _, m := range msgs {
			fmt.Fprintf(w, "%s\t%s <%s>\t%s\t%s\t%s\n",
				m.ID, m.Name, m.Email, m.Subject, m.Status, m.CreatedAt.Local().Format(time.DateTime))
		}
	})
}
