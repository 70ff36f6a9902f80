// Command storefront is a terminal client for a PasarLink shop: browse the
// catalog, manage the cart, place orders, and work incoming sales.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/pasarlink/storefront/internal/storefront"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8082", "API base URL")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "", "Account password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	client, err := storefront.NewClient(*baseURL)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	if err := client.Login(ctx, *email, *password); err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	defer client.Logout(context.Background())

	toasts := storefront.NotifierFunc(func(message string) {
		fmt.Printf("  ! %s\n", message)
	})
	cart := storefront.NewCart(client, toasts)
	board := storefront.NewOrderBoard(client, toasts)

	fmt.Println("Signed in. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			break
		}
		if err := run(ctx, client, cart, board, args); err != nil {
			fmt.Printf("  error: %v\n", err)
		}
	}
}

func run(ctx context.Context, client *storefront.Client, cart *storefront.Cart, board *storefront.OrderBoard, args []string) error {
	switch args[0] {
	case "help":
		printHelp()
		return nil
	case "catalog":
		return showCatalog(ctx, client)
	case "cart":
		return showCart(ctx, cart)
	case "add":
		return addToCart(ctx, client, cart, args[1:])
	case "inc":
		return withProductID(args[1:], func(id uuid.UUID) error { return cart.Increment(ctx, id) })
	case "dec":
		return withProductID(args[1:], func(id uuid.UUID) error { return cart.Decrement(ctx, id) })
	case "rm":
		return withProductID(args[1:], func(id uuid.UUID) error { return cart.Remove(ctx, id) })
	case "checkout":
		return checkout(ctx, client, cart)
	case "orders":
		return showOrders(ctx, board)
	case "sales":
		return showSales(ctx, board)
	case "item":
		return updateItem(ctx, board, args[1:])
	default:
		return fmt.Errorf("unknown command %q, type 'help'", args[0])
	}
}

func printHelp() {
	fmt.Println(`  catalog              list products from other shops
  cart                 show the cart
  add <product-id>     add one unit of a catalog product
  inc <product-id>     increase a cart line by one
  dec <product-id>     decrease a cart line by one
  rm <product-id>      remove a cart line
  checkout             validate the cart and place the order
  orders               list placed orders
  sales                list incoming order items
  item <id> <status>   move an order item (ACCEPTED, REJECTED, SHIPPED, DELIVERED)
  quit                 sign out and exit`)
}

func withProductID(args []string, fn func(uuid.UUID) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected a product id")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}
	return fn(id)
}

func showCatalog(ctx context.Context, client *storefront.Client) error {
	products, err := client.FetchCatalog(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Println("  (catalog is empty)")
		return nil
	}
	for _, p := range products {
		fmt.Printf("  %s  %-24s Rp %s  (stock %d)\n", p.ID, p.Name, p.Price.StringFixed(2), p.StockQty)
	}
	return nil
}

func showCart(ctx context.Context, cart *storefront.Cart) error {
	if err := cart.Refresh(ctx); err != nil {
		return err
	}
	lines := cart.Lines()
	if len(lines) == 0 {
		fmt.Println("  (cart is empty)")
		return nil
	}
	for _, line := range lines {
		fmt.Printf("  %s  %-24s x%d @ Rp %s\n",
			line.ProductID, line.Product.Name, line.Quantity, line.Product.Price.StringFixed(2))
	}
	return nil
}

// addToCart resolves the product against the catalog so the cart has its
// name, price, and stock for local checks.
func addToCart(ctx context.Context, client *storefront.Client, cart *storefront.Cart, args []string) error {
	return withProductID(args, func(id uuid.UUID) error {
		products, err := client.FetchCatalog(ctx)
		if err != nil {
			return err
		}
		for _, p := range products {
			if p.ID == id {
				return cart.Add(ctx, id, storefront.Product{
					Name:     p.Name,
					Price:    p.Price,
					Image:    p.ImageURL,
					StockQty: p.StockQty,
				})
			}
		}
		return fmt.Errorf("product %s not in catalog", id)
	})
}

func checkout(ctx context.Context, client *storefront.Client, cart *storefront.Cart) error {
	ok, err := cart.ValidateCheckout(ctx)
	if err != nil {
		return err
	}
	if !ok {
		// The shortfall toast already printed.
		return nil
	}
	order, err := client.Checkout(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  Order %s placed, total Rp %s, %d items\n",
		order.ID, order.TotalAmount.StringFixed(2), len(order.Items))
	return cart.Refresh(ctx)
}

func showOrders(ctx context.Context, board *storefront.OrderBoard) error {
	if err := board.Load(ctx); err != nil {
		return err
	}
	orders := board.Orders()
	if len(orders) == 0 {
		fmt.Println("  (no orders yet)")
		return nil
	}
	for _, order := range orders {
		fmt.Printf("  %s  Rp %s  %s\n", order.ID, order.TotalAmount.StringFixed(2), order.CreatedAt.Format("2006-01-02 15:04"))
		for _, item := range order.Items {
			fmt.Printf("    %s  %-24s x%d  %s\n", item.ID, item.ProductName, item.Qty, item.Status)
		}
	}
	return nil
}

func showSales(ctx context.Context, board *storefront.OrderBoard) error {
	if err := board.LoadSales(ctx); err != nil {
		return err
	}
	items := board.Sales()
	if len(items) == 0 {
		fmt.Println("  (no incoming items)")
		return nil
	}
	for _, item := range items {
		actions := storefront.AllowedActions(item.Status)
		fmt.Printf("  %s  %-24s x%d  %-9s from %s", item.ID, item.ProductName, item.Qty, item.Status, item.BuyerShop)
		if len(actions) > 0 {
			fmt.Printf("  -> %s", strings.Join(actions, ", "))
		}
		fmt.Println()
	}
	return nil
}

func updateItem(ctx context.Context, board *storefront.OrderBoard, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected an item id and a status")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid item id: %w", err)
	}
	return board.Transition(ctx, id, strings.ToUpper(args[1]))
}
