package main

import (
	"flag"
	"fmt"
	"strings"
	"sync"
	"time"

	"knox/client"
	"knox/log"
)

var (
	sampleDataLen   = 100
	stringCount     = 1000
	repeatsCount    = 100
	setWorkersCount = 10
	getWorkersCount = 10

	succeeded, failed counter
)

type counter struct {
	mu  sync.Mutex
	val int
}

func (c *counter) Add(d int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val += d
}

func (c *counter) Get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

func main() {
	var (
		host string
		port int
	)

	flag.StringVar(&host, "h", "localhost", "The knox host.")
	flag.IntVar(&port, "p", 8520, "The knox port.")
	flag.Parse()

	addr := fmt.Sprintf("%s:%d", host, port)
	keys := makeKeys(stringCount)

	run("Set", setWorkersCount, func(wg *sync.WaitGroup) {
		for i := 0; i < setWorkersCount; i++ {
			wg.Add(1)
			go workerSet(wg, addr, keys, repeatsCount)
		}
	})

	run("Get", getWorkersCount, func(wg *sync.WaitGroup) {
		for i := 0; i < getWorkersCount; i++ {
			wg.Add(1)
			go workerGet(wg, addr, keys, repeatsCount)
		}
	})

	run("Get&Set", setWorkersCount+getWorkersCount, func(wg *sync.WaitGroup) {
		for i := 0; i < getWorkersCount; i++ {
			wg.Add(1)
			go workerGet(wg, addr, keys, repeatsCount)
		}
		for i := 0; i < setWorkersCount; i++ {
			wg.Add(1)
			go workerSet(wg, addr, keys, repeatsCount)
		}
	})
}

func run(label string, _ int, spawn func(wg *sync.WaitGroup)) {
	succeeded, failed = counter{}, counter{}

	var wg sync.WaitGroup
	start := time.Now()
	spawn(&wg)
	wg.Wait()
	elapsed := time.Since(start)

	total := succeeded.Get() + failed.Get()
	perSecond := float64(total) / elapsed.Seconds()
	log.Infof("%s: success %d/%d in %s, %d ops/second", label, succeeded.Get(), total, elapsed, int(perSecond))
}

func makeKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("string_%d", i)
	}
	return keys
}

func sampleValue() string {
	val := time.Now().Format("15:04:05.000")
	repeats := sampleDataLen - len(val)
	if repeats < 0 {
		repeats = 0
	}
	return strings.Repeat("=", repeats) + val
}

func workerSet(wg *sync.WaitGroup, addr string, keys []string, repeats int) {
	defer wg.Done()

	c, err := client.Dial(addr)
	if err != nil {
		log.Errorf("dial %s: %s", addr, err)
		failed.Add(len(keys) * repeats)
		return
	}
	defer c.Close()

	for step := 0; step < repeats; step++ {
		for _, key := range keys {
			val := sampleValue()
			if err := c.Set(key, []byte(val)); err != nil {
				failed.Add(1)
				log.Errorf("SET %q %q: %s", key, val, err)
			} else {
				succeeded.Add(1)
			}
		}
	}
}

func workerGet(wg *sync.WaitGroup, addr string, keys []string, repeats int) {
	defer wg.Done()

	c, err := client.Dial(addr)
	if err != nil {
		log.Errorf("dial %s: %s", addr, err)
		failed.Add(len(keys) * repeats)
		return
	}
	defer c.Close()

	for step := 0; step < repeats; step++ {
		for _, key := range keys {
			if _, _, err := c.Get(key); err != nil {
				failed.Add(1)
				log.Errorf("GET %q: %s", key, err)
			} else {
				succeeded.Add(1)
			}
		}
	}
}
