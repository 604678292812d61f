package render

func ResetFactories() func() {
	mu.Lock()
	defer mu.Unlock()
	ref := map[string]Factory{}
	for k, v := range factories {
		ref[k] = v
	}
	return func() {
		mu.Lock()
		defer mu.Unlock()
		factories = ref
	}
}
