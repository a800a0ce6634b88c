package placements

import "github.com/gofiber/fiber/v2"

// Routes mounts the placement endpoints on r. mutate runs ahead of every write.
func (h *Handlers) Routes(r fiber.Router, mutate ...fiber.Handler) {
	write := func(fn fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, mutate...), fn)
	}

	r.Get("/threads", h.Threads)
	r.Get("/threads/:brand_id/:showroom_id", h.Thread)
	r.Get("/threads/:brand_id/:showroom_id/lines", h.Lines)
	r.Get("/:id/thread", h.ThreadOf)

	r.Post("/", write(h.Propose)...)
	r.Post("/threads/:brand_id/:showroom_id/accept", write(h.Accept)...)
	r.Post("/threads/:brand_id/:showroom_id/decline", write(h.Decline)...)
	r.Post("/threads/:brand_id/:showroom_id/counter", write(h.Counter)...)
	r.Post("/threads/:brand_id/:showroom_id/withdraw", write(h.Withdraw)...)
	r.Post("/:id/sale", write(h.DeclareSale)...)
}
